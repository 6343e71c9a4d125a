package extract

import (
	"context"
	"fmt"
	"strings"

	"social_media_analyzer/failure"
)

const pdfFailedMsg = "Could not extract text from this PDF."

// PDFExtractor converts PDF bytes to page-ordered plain text.
type PDFExtractor struct {
	capab *Capability
}

// NewPDFExtractor returns an extractor backed by capab.
func NewPDFExtractor(capab *Capability) *PDFExtractor {
	return &PDFExtractor{capab: capab}
}

// Extract joins each page's tokens with single spaces, separates pages
// with a blank line and trims the result. Any page error discards all
// text gathered so far. Backends panic on some malformed input; those
// panics are reported as ExtractionFailed.
func (e *PDFExtractor) Extract(ctx context.Context, content []byte) (text string, err error) {
	if e.capab == nil {
		return "", failure.New(failure.DependencyNotReady, notReadyMsg)
	}
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = failure.Wrap(failure.ExtractionFailed, pdfFailedMsg, fmt.Errorf("malformed pdf: %v", r))
		}
	}()

	src, err := e.capab.open(content)
	if err != nil {
		if failure.KindOf(err) != "" {
			return "", err
		}
		return "", failure.Wrap(failure.ExtractionFailed, pdfFailedMsg, fmt.Errorf("open pdf: %w", err))
	}

	var sb strings.Builder
	for page := 1; page <= src.NumPages(); page++ {
		if err := ctx.Err(); err != nil {
			return "", failure.Wrap(failure.ExtractionFailed, pdfFailedMsg, err)
		}
		tokens, err := src.PageTokens(page)
		if err != nil {
			return "", failure.Wrap(failure.ExtractionFailed, pdfFailedMsg, fmt.Errorf("page %d: %w", page, err))
		}
		sb.WriteString(strings.Join(tokens, " "))
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String()), nil
}
