// Package docextract turns uploaded job-description documents into plain text.
package docextract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/types"
)

var pdfMagic = []byte("%PDF-")

// Extractor reads PDF documents; UTF-8 plain text passes through unchanged.
type Extractor struct {
	logger *zap.Logger
}

// New creates an Extractor.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger.With(zap.String("component", "docextract"))}
}

// Extract returns the document text. An empty result is not an error here;
// callers decide whether empty text is fatal.
func (e *Extractor) Extract(ctx context.Context, data []byte) (types.Document, error) {
	if err := ctx.Err(); err != nil {
		return types.Document{}, err
	}
	if len(data) == 0 {
		return types.Document{}, nil
	}

	if !bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), pdfMagic) {
		if !utf8.Valid(data) {
			return types.Document{}, types.InvalidRequest("document is neither a PDF nor UTF-8 text")
		}
		return types.Document{Text: strings.TrimSpace(string(data)), Pages: 1}, nil
	}

	doc, err := e.extractPDF(data)
	if err != nil {
		return types.Document{}, types.InvalidRequest("failed to read PDF").WithCause(err)
	}
	e.logger.Debug("pdf extracted", zap.Int("pages", doc.Pages), zap.Int("chars", doc.Chars()))
	return doc, nil
}

func (e *Extractor) extractPDF(data []byte) (doc types.Document, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return types.Document{}, err
	}

	var sb strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("skipping unreadable page", zap.Int("page", i), zap.Error(err))
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(text)
	}

	return types.Document{Text: strings.TrimSpace(sb.String()), Pages: pages}, nil
}
