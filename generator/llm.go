package generator

import (
	"context"
	"net/http"
	"time"
)

// LLMClient sends one Request to a text-generation service and returns the
// raw response text. Implementations make exactly one attempt.
type LLMClient interface {
	Send(ctx context.Context, req Request, credential string) (string, error)
}

// LLMSettings configures a concrete LLMClient. The credential is not part
// of the settings; callers pass it to every Send.
type LLMSettings struct {
	Provider string
	Model    string
	BaseURL  string
	// CredentialEnv names the variable the credential is read from and only
	// appears in error messages.
	CredentialEnv string
	Timeout       time.Duration
	HTTPClient    *http.Client
}
