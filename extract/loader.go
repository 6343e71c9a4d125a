package extract

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"social_media_analyzer/failure"
)

// DefaultMaxFileSize bounds how much of a source is read into memory.
const DefaultMaxFileSize = 100 * 1024 * 1024

// Loader captures SourceDocuments from readers or files.
type Loader struct {
	MaxFileSize int64
}

// NewLoader returns a Loader; maxFileSize <= 0 selects DefaultMaxFileSize.
func NewLoader(maxFileSize int64) *Loader {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Loader{MaxFileSize: maxFileSize}
}

// Load reads r fully and captures it under name with the declared MIME type.
func (l *Loader) Load(ctx context.Context, name, mimeType string, r io.Reader) (SourceDocument, error) {
	if err := ctx.Err(); err != nil {
		return SourceDocument{}, failure.Wrap(failure.ExtractionFailed, "Failed to read file", err)
	}

	data, err := io.ReadAll(io.LimitReader(r, l.MaxFileSize+1))
	if err != nil {
		return SourceDocument{}, failure.Wrap(failure.ExtractionFailed, "Failed to read file", err)
	}
	if int64(len(data)) > l.MaxFileSize {
		return SourceDocument{}, failure.Newf(failure.ExtractionFailed,
			"File too large: more than %d bytes", l.MaxFileSize)
	}

	mediaType, charset := normalizeMIME(mimeType)
	return SourceDocument{
		Name:     name,
		MIMEType: mediaType,
		Encoding: charset,
		Content:  data,
	}, nil
}

// LoadFile captures the file at path, guessing its MIME type from the
// extension.
func (l *Loader) LoadFile(ctx context.Context, path string) (SourceDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return SourceDocument{}, failure.Wrap(failure.ExtractionFailed, "Failed to read file", fmt.Errorf("open %s: %w", path, err))
	}
	defer f.Close()

	name := filepath.Base(path)
	return l.Load(ctx, name, mime.TypeByExtension(filepath.Ext(name)), f)
}

// normalizeMIME lower-cases the media type and splits off a charset
// parameter. Unparseable values are kept as-is so that classification can
// still fall back to the file name.
func normalizeMIME(v string) (string, string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ""
	}
	mediaType, params, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.ToLower(v), ""
	}
	return mediaType, strings.ToLower(params["charset"])
}
