package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// LedongthucBackend parses PDFs with github.com/ledongthuc/pdf (pure Go).
type LedongthucBackend struct{}

// NewLedongthucBackend returns the default PDF backend.
func NewLedongthucBackend() *LedongthucBackend {
	return &LedongthucBackend{}
}

func (b *LedongthucBackend) Name() string { return "ledongthuc" }

// Init has nothing to set up; the library keeps no global state.
func (b *LedongthucBackend) Init(ctx context.Context) error {
	return ctx.Err()
}

func (b *LedongthucBackend) Open(content []byte) (PageSource, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty PDF content")
	}
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}
	return &ledongthucSource{r: r}, nil
}

type ledongthucSource struct {
	r *pdf.Reader
}

func (s *ledongthucSource) NumPages() int {
	return s.r.NumPage()
}

// PageTokens returns one token per visual text row, top to bottom.
func (s *ledongthucSource) PageTokens(n int) (tokens []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			tokens = nil
			err = fmt.Errorf("malformed page: %v", r)
		}
	}()

	page := s.r.Page(n)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page object missing")
	}
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		var sb strings.Builder
		for _, t := range row.Content {
			sb.WriteString(t.S)
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			tokens = append(tokens, text)
		}
	}
	return tokens, nil
}
