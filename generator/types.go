package generator

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Suggestion is one engagement tip returned by the model.
type Suggestion struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Platform string `json:"platform,omitempty"`
}

// UnmarshalJSON accepts any JSON object. Field values that are not strings
// are kept as their JSON text, null becomes "" and unknown keys are ignored.
// A bare JSON string is taken as the tip's body.
func (s *Suggestion) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var body string
		if err := json.Unmarshal(data, &body); err != nil {
			return err
		}
		*s = Suggestion{Body: body}
		return nil
	}
	if len(data) == 0 || data[0] != '{' {
		return errors.New("suggestion must be a JSON object or string")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*s = Suggestion{
		Title:    scalarString(fields["title"]),
		Body:     scalarString(fields["body"]),
		Platform: scalarString(fields["platform"]),
	}
	return nil
}

func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

// Tier identifies which parsing strategy produced a ParseResult.
type Tier int

const (
	// TierEmbedded parsed the first bracketed array found in the response.
	TierEmbedded Tier = iota + 1
	// TierWhole parsed the entire response as an array.
	TierWhole
	// TierLines salvaged non-blank lines as plain tips.
	TierLines
)

func (t Tier) String() string {
	switch t {
	case TierEmbedded:
		return "embedded"
	case TierWhole:
		return "whole"
	case TierLines:
		return "lines"
	default:
		return "unknown"
	}
}

// Outcome summarises the quality of a ParseResult.
type Outcome int

const (
	// Parsed means a structured array was decoded.
	Parsed Outcome = iota + 1
	// Partial means the records were salvaged from raw lines.
	Partial
	// Empty means nothing usable was found.
	Empty
)

func (o Outcome) String() string {
	switch o {
	case Parsed:
		return "parsed"
	case Partial:
		return "partial"
	case Empty:
		return "empty"
	default:
		return "unknown"
	}
}

// ParseResult is the output of ParseSuggestions.
type ParseResult struct {
	Suggestions []Suggestion
	Tier        Tier
	Outcome     Outcome
}
