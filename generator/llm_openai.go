package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"

	"social_media_analyzer/failure"
)

const serviceFailedMsg = "OpenAI API request failed"

// OpenAILLM implements LLMClient using the official openai-go SDK (chat completions).
type OpenAILLM struct {
	Model         string
	CredentialEnv string
	Opts          []option.RequestOption
}

func NewOpenAILLMFromConfig(cfg *LLMSettings) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	env := cfg.CredentialEnv
	if env == "" {
		env = "OPENAI_API_KEY"
	}
	return &OpenAILLM{Model: cfg.Model, CredentialEnv: env, Opts: opts}, nil
}

// Send fails with MissingCredential before any network activity when
// credential is blank.
func (o *OpenAILLM) Send(ctx context.Context, req Request, credential string) (string, error) {
	if strings.TrimSpace(credential) == "" {
		return "", failure.Newf(failure.MissingCredential,
			"OpenAI API key not found. Set %s in your environment.", o.CredentialEnv)
	}

	opts := make([]option.RequestOption, 0, len(o.Opts)+1)
	opts = append(opts, o.Opts...)
	opts = append(opts, option.WithAPIKey(credential))
	client := openai.NewClient(opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		MaxTokens:   openai.Int(req.Params.MaxOutputTokens),
		Temperature: openai.Float(req.Params.Temperature),
	})
	if err != nil {
		return "", serviceError(err)
	}
	// An empty choice list is not an error here; the parser reports it as
	// an empty result.
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// serviceError keeps the service-provided message when the response
// carried one.
func serviceError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return failure.Wrap(failure.ServiceError, serviceFailedMsg, err)
	}
	msg := strings.TrimSpace(apiErr.Message)
	if msg == "" {
		raw := apiErr.RawJSON()
		msg = gjson.Get(raw, "error.message").String()
		if msg == "" {
			msg = gjson.Get(raw, "message").String()
		}
	}
	if msg == "" {
		msg = serviceFailedMsg
	}
	return failure.Wrap(failure.ServiceError, msg, fmt.Errorf("status %d: %w", apiErr.StatusCode, err))
}
