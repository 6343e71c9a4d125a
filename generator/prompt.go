package generator

import (
	"fmt"
	"strings"
)

const (
	// DefaultMaxPromptChars bounds how much extracted text is embedded in
	// the prompt, counted in characters.
	DefaultMaxPromptChars = 4000
	DefaultTemperature    = 0.7
	DefaultMaxTokens      = 1200
	TipCount              = 5
)

// Platforms are the target platforms the prompt asks the model to choose from.
var Platforms = []string{"Instagram", "LinkedIn", "Twitter", "Facebook", "TikTok"}

const systemInstruction = "You are an expert social media strategist."

// Params are the generation parameters sent with every request.
type Params struct {
	Temperature     float64
	MaxOutputTokens int64
}

// Request is an immutable chat request: one system and one user message.
type Request struct {
	System string
	User   string
	Params Params
}

// Builder builds Requests from extracted text.
type Builder struct {
	MaxChars int
	Params   Params
}

// DefaultBuilder returns a Builder with the default bound and parameters.
func DefaultBuilder() Builder {
	return Builder{
		MaxChars: DefaultMaxPromptChars,
		Params: Params{
			Temperature:     DefaultTemperature,
			MaxOutputTokens: DefaultMaxTokens,
		},
	}
}

// Build embeds at most MaxChars characters of text in the prompt. The
// result depends only on text and the builder's fields.
func (b Builder) Build(text string) Request {
	limit := b.MaxChars
	if limit <= 0 {
		limit = DefaultMaxPromptChars
	}
	params := b.Params
	if params == (Params{}) {
		params = DefaultBuilder().Params
	}

	var sb strings.Builder
	sb.WriteString("You are an expert social media strategist. Analyze the following content and provide ")
	sb.WriteString(fmt.Sprintf("%d specific, actionable engagement improvement tips.\n\n", TipCount))
	sb.WriteString("Content:\n\"\"\"\n")
	sb.WriteString(Truncate(text, limit))
	sb.WriteString("\n\"\"\"\n\n")
	sb.WriteString(fmt.Sprintf("Provide your response as a JSON array with exactly %d objects. Each object must have:\n", TipCount))
	sb.WriteString("- \"title\": A short, catchy title (5-8 words)\n")
	sb.WriteString("- \"body\": A detailed explanation (2-3 sentences)\n")
	sb.WriteString(fmt.Sprintf("- \"platform\": Best platform for this tip (%s)\n\n", strings.Join(Platforms, "/")))
	sb.WriteString("Respond ONLY with valid JSON, no other text.")

	return Request{
		System: systemInstruction,
		User:   sb.String(),
		Params: params,
	}
}

// Truncate returns the first n characters (runes) of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
