package extract

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"social_media_analyzer/failure"
)

const readFailedMsg = "Failed to read file"

// TextExtractor decodes text and markdown sources in a single pass.
type TextExtractor struct{}

// Extract decodes content using the declared encoding ("" or any UTF-8
// alias means strict UTF-8) and trims surrounding whitespace.
func (e *TextExtractor) Extract(ctx context.Context, content []byte, declaredEncoding string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", failure.Wrap(failure.DecodeFailed, readFailedMsg, err)
	}

	text, err := decode(content, declaredEncoding)
	if err != nil {
		return "", failure.Wrap(failure.DecodeFailed, readFailedMsg, err)
	}
	return strings.TrimSpace(text), nil
}

func decode(content []byte, name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "utf-8" || name == "utf8" {
		out, _, err := transform.Bytes(encoding.UTF8Validator, content)
		if err != nil {
			return "", fmt.Errorf("invalid utf-8: %w", err)
		}
		return strings.TrimPrefix(string(out), "\ufeff"), nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	out, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return strings.TrimPrefix(string(out), "\ufeff"), nil
}
