package types

import "context"

// =============================================================================
// 📄 外部能力共享的值类型
// =============================================================================

// Document is the text extracted from an uploaded job description.
type Document struct {
	Text  string `json:"text"`
	Pages int    `json:"pages"`
}

// Chars returns the rune count of the extracted text.
func (d Document) Chars() int { return len([]rune(d.Text)) }

// Profile is one person returned by a candidate search.
type Profile struct {
	Name       string `json:"name"`
	ProfileURL string `json:"profileUrl,omitempty"`
	Title      string `json:"title,omitempty"`
	Company    string `json:"company,omitempty"`
	Location   string `json:"location,omitempty"`
	Email      string `json:"email,omitempty"`
}

// SearchSession is one searcher session shared by every query of a pipeline run.
// Stop must be called exactly once when the run no longer needs it.
type SearchSession interface {
	Search(ctx context.Context, query string) ([]Profile, error)
	Stop(ctx context.Context) error
}
