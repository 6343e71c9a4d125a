// Package extract turns user-supplied files into plain text.
//
// Supported inputs:
//   - application/pdf           : page-ordered text via a pluggable PDF backend
//   - text/plain, *.txt, *.md   : decoded as text (UTF-8 unless declared otherwise)
//   - image/*                   : classified but not extracted (no OCR)
//
// Usage:
//
//	capab := extract.NewCapability(extract.NewLedongthucBackend())
//	capab.Start(ctx)
//	d := extract.NewDispatcher(extract.Config{PDF: capab})
//	text, err := d.Extract(ctx, doc)
package extract

// Kind identifies which extractor handles a document.
type Kind string

const (
	KindPDF         Kind = "pdf"
	KindImage       Kind = "image"
	KindPlainText   Kind = "plain_text"
	KindUnsupported Kind = "unsupported"
)

// SourceDocument is one captured input file. It is not modified after
// capture.
type SourceDocument struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	// Encoding is the declared text encoding, "" meaning UTF-8.
	Encoding string `json:"encoding,omitempty"`
	Content  []byte `json:"-"`
}

// Size returns the content length in bytes.
func (d SourceDocument) Size() int {
	return len(d.Content)
}
