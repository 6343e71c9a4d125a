package extract

import (
	"context"

	"social_media_analyzer/failure"
)

// ImageExtractor is the placeholder for image inputs. OCR is not
// implemented, so every call fails.
type ImageExtractor struct{}

func (ImageExtractor) Extract(_ context.Context, _ []byte) (string, error) {
	return "", failure.New(failure.UnsupportedFormat, "Image text extraction is not enabled. Use a PDF or paste text.")
}
