package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFCPUBackend reads PDFs with pdfcpu and pulls text out of the page
// content streams. It only understands literal strings shown with the
// Tj, TJ and ' operators.
type PDFCPUBackend struct {
	conf *model.Configuration
}

// NewPDFCPUBackend returns an uninitialized pdfcpu backend.
func NewPDFCPUBackend() *PDFCPUBackend {
	return &PDFCPUBackend{}
}

func (b *PDFCPUBackend) Name() string { return "pdfcpu" }

// Init builds the pdfcpu configuration without touching the user's config
// directory.
func (b *PDFCPUBackend) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	b.conf = conf
	return nil
}

func (b *PDFCPUBackend) Open(content []byte) (PageSource, error) {
	if b.conf == nil {
		return nil, fmt.Errorf("pdfcpu backend not initialized")
	}
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(content), b.conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	return &pdfcpuSource{ctx: ctx}, nil
}

type pdfcpuSource struct {
	ctx *model.Context
}

func (s *pdfcpuSource) NumPages() int {
	return s.ctx.PageCount
}

func (s *pdfcpuSource) PageTokens(n int) ([]string, error) {
	r, err := pdfcpu.ExtractPageContent(s.ctx, n)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return streamTokens(data), nil
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

// streamTokens returns the decoded string operands of text-showing
// operators, in stream order.
func streamTokens(data []byte) []string {
	var tokens []string
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !bytes.HasSuffix(line, []byte("Tj")) &&
			!bytes.HasSuffix(line, []byte("TJ")) &&
			!(bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("("))) {
			continue
		}
		for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
			if text := decodePDFString(m[1]); text != "" {
				tokens = append(tokens, text)
			}
		}
	}
	return tokens
}

// decodePDFString handles the escape sequences of PDF literal strings.
func decodePDFString(raw []byte) string {
	var out []byte
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			out = append(out, raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			val := int(raw[i] - '0')
			for k := 0; k < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; k++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			out = append(out, byte(val))
		default:
			// \\, \(, \) and unknown escapes yield the character itself.
			out = append(out, raw[i])
		}
	}
	return string(out)
}
