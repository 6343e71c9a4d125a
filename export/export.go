// Package export renders a finished run for copying, downloading and
// reading.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"social_media_analyzer/generator"
	"social_media_analyzer/pipeline"
)

// JSON formats tips as a two-space indented array. A nil slice renders
// as [].
func JSON(tips []generator.Suggestion) ([]byte, error) {
	if tips == nil {
		tips = []generator.Suggestion{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tips); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// DownloadName is the file name offered for the JSON download of the
// tips generated from document.
func DownloadName(document string) string {
	name := strings.TrimSpace(document)
	if name != "" {
		name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	}
	if name == "" || name == "." || name == "/" {
		name = "tips"
	}
	return name + ".tips.json"
}

// Markdown renders a run as a small report.
func Markdown(res pipeline.Result) string {
	var sb strings.Builder
	title := res.Document
	if title == "" {
		title = "your content"
	}
	sb.WriteString(fmt.Sprintf("# Engagement tips for %s\n\n", title))
	if len(res.Suggestions) == 0 {
		sb.WriteString("No suggestions were returned.\n")
		return sb.String()
	}
	for i, tip := range res.Suggestions {
		sb.WriteString(fmt.Sprintf("## %d. %s\n\n", i+1, oneLine(tip.Title)))
		if tip.Platform != "" {
			sb.WriteString(fmt.Sprintf("*Platform: %s*\n\n", oneLine(tip.Platform)))
		}
		sb.WriteString(strings.TrimSpace(tip.Body))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// oneLine keeps a model-supplied field on a single Markdown line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var htmlPolicy = bluemonday.UGCPolicy()

// HTML converts the Markdown report to a standalone, sanitised page.
// Model output is untrusted, so the converted body passes through a
// user-content policy.
func HTML(res pipeline.Result) ([]byte, error) {
	body, err := mdToHTML(Markdown(res))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	buf.WriteString("<title>Engagement tips</title>\n</head>\n<body>\n")
	buf.Write(htmlPolicy.SanitizeBytes(body))
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}

func mdToHTML(md string) ([]byte, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
