package docextract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/recruitflow/types"
)

func TestExtract_PlainText(t *testing.T) {
	e := New(zaptest.NewLogger(t))

	doc, err := e.Extract(context.Background(), []byte("  Senior Backend Engineer, Python, AWS \n"))
	require.NoError(t, err)
	assert.Equal(t, "Senior Backend Engineer, Python, AWS", doc.Text)
	assert.Equal(t, 1, doc.Pages)
	assert.Equal(t, 36, doc.Chars())
}

func TestExtract_Empty(t *testing.T) {
	doc, err := New(nil).Extract(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, doc.Text)
}

func TestExtract_BinaryRejected(t *testing.T) {
	_, err := New(nil).Extract(context.Background(), []byte{0xff, 0xfe, 0x00, 0x81})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}

func TestExtract_MalformedPDF(t *testing.T) {
	_, err := New(nil).Extract(context.Background(), []byte("%PDF-1.4\nthis is not really a pdf"))
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}

func TestExtract_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).Extract(ctx, []byte("text"))
	assert.ErrorIs(t, err, context.Canceled)
}
