package extract

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"social_media_analyzer/failure"
)

var plainTextName = regexp.MustCompile(`(?i)\.(txt|md)$`)

// Classify picks the extractor for doc. Rules are applied in order:
// exact application/pdf, any image/*, text/plain or a .txt/.md name,
// otherwise unsupported.
func Classify(doc SourceDocument) Kind {
	switch {
	case doc.MIMEType == "application/pdf":
		return KindPDF
	case strings.HasPrefix(doc.MIMEType, "image/"):
		return KindImage
	case doc.MIMEType == "text/plain" || plainTextName.MatchString(doc.Name):
		return KindPlainText
	default:
		return KindUnsupported
	}
}

// Config wires the extractors used by a Dispatcher.
type Config struct {
	// PDF is the PDF-parsing capability. A nil capability makes every PDF
	// fail with DependencyNotReady.
	PDF *Capability

	// Logger for debug messages.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Dispatcher routes a document to the extractor chosen by Classify.
type Dispatcher struct {
	pdf    *PDFExtractor
	text   *TextExtractor
	image  ImageExtractor
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher with the given configuration.
func NewDispatcher(cfg Config) *Dispatcher {
	cfg.defaults()
	return &Dispatcher{
		pdf:    NewPDFExtractor(cfg.PDF),
		text:   &TextExtractor{},
		logger: cfg.Logger,
	}
}

// Extract returns the trimmed text of doc.
func (d *Dispatcher) Extract(ctx context.Context, doc SourceDocument) (string, error) {
	kind := Classify(doc)
	d.logger.Debug("extracting document", "name", doc.Name, "mime", doc.MIMEType, "kind", kind, "bytes", doc.Size())

	switch kind {
	case KindPDF:
		return d.pdf.Extract(ctx, doc.Content)
	case KindImage:
		return d.image.Extract(ctx, doc.Content)
	case KindPlainText:
		return d.text.Extract(ctx, doc.Content, doc.Encoding)
	default:
		return "", failure.New(failure.UnsupportedFormat, "Unsupported file type. Upload a PDF or text file.")
	}
}
