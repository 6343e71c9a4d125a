package generator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// MaxSalvagedLines caps how many raw lines become tips when the response
// holds no usable JSON.
const MaxSalvagedLines = 5

// embeddedArrayRe spans from the first '[' to the last ']'.
var embeddedArrayRe = regexp.MustCompile(`\[[\s\S]*\]`)

// ParseSuggestions turns a raw model response into suggestions. It never
// fails: when neither the embedded array nor the whole response decodes,
// up to MaxSalvagedLines non-blank lines are returned as generic tips.
func ParseSuggestions(raw string) ParseResult {
	if m := embeddedArrayRe.FindString(raw); m != "" {
		if tips, ok := decodeArray(m); ok {
			return ParseResult{Suggestions: tips, Tier: TierEmbedded, Outcome: Parsed}
		}
	}
	if tips, ok := decodeArray(raw); ok {
		return ParseResult{Suggestions: tips, Tier: TierWhole, Outcome: Parsed}
	}

	tips := salvageLines(raw)
	outcome := Partial
	if len(tips) == 0 {
		outcome = Empty
	}
	return ParseResult{Suggestions: tips, Tier: TierLines, Outcome: outcome}
}

func decodeArray(s string) ([]Suggestion, bool) {
	var tips []Suggestion
	if err := json.Unmarshal([]byte(s), &tips); err != nil {
		return nil, false
	}
	// "null" decodes without error but is not an array.
	if tips == nil {
		return nil, false
	}
	return tips, true
}

func salvageLines(raw string) []Suggestion {
	var tips []Suggestion
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		tips = append(tips, Suggestion{
			Title:    fmt.Sprintf("Tip %d", len(tips)+1),
			Body:     line,
			Platform: "General",
		})
		if len(tips) == MaxSalvagedLines {
			break
		}
	}
	return tips
}
