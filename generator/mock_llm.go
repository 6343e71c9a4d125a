package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"social_media_analyzer/failure"
)

// MockLLM answers locally without calling a model. The response is derived
// from the request so identical requests get identical answers.
type MockLLM struct{}

func (m MockLLM) Send(ctx context.Context, req Request, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", failure.Wrap(failure.ServiceError, serviceFailedMsg, err)
	}
	subject := mockSubject(req.User)
	tips := make([]Suggestion, 0, TipCount)
	for i := 0; i < TipCount; i++ {
		platform := Platforms[i%len(Platforms)]
		tips = append(tips, Suggestion{
			Title: fmt.Sprintf("Tailor %q for %s", subject, platform),
			Body: fmt.Sprintf("Rework the opening of %q so it lands in the first line on %s. "+
				"Close with one clear question to invite replies.", subject, platform),
			Platform: platform,
		})
	}
	out, err := json.Marshal(tips)
	if err != nil {
		return "", err
	}
	return "Here are your tips:\n" + string(out), nil
}

// mockSubject picks the first content line of the prompt.
func mockSubject(user string) string {
	_, rest, ok := strings.Cut(user, "\"\"\"\n")
	if !ok {
		return "your post"
	}
	line, _, _ := strings.Cut(rest, "\n")
	line = strings.TrimSpace(line)
	if line == "" || line == `"""` {
		return "your post"
	}
	return Truncate(line, 40)
}
