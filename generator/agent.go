package generator

import (
	"context"
	"errors"
)

// Agent turns extracted text into a raw model response.
type Agent struct {
	llm     LLMClient
	builder Builder
}

func NewAgent(llm LLMClient, builder Builder) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	return &Agent{llm: llm, builder: builder}, nil
}

// Build returns the request Request would send for text.
func (a *Agent) Build(text string) Request {
	return a.builder.Build(text)
}

// Request builds a fresh request for text and sends it once.
func (a *Agent) Request(ctx context.Context, text, credential string) (string, error) {
	return a.llm.Send(ctx, a.builder.Build(text), credential)
}
