package pipeline

// Outcome is the result of one item of a best-effort loop: a search query or
// an email lookup. Exactly one of Value and Err is meaningful.
type Outcome[T any] struct {
	Item  string
	Value T
	Err   error
}

// OK reports whether the item succeeded.
func (o Outcome[T]) OK() bool { return o.Err == nil }

// Succeeded counts successful outcomes.
func Succeeded[T any](outcomes []Outcome[T]) int {
	n := 0
	for _, o := range outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed returns the failed outcomes in order.
func Failed[T any](outcomes []Outcome[T]) []Outcome[T] {
	var out []Outcome[T]
	for _, o := range outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}
