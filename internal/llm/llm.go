// Package llm wraps the external language-model inference service.
package llm

import "context"

// Client performs one inference per conversational turn. Implementations do
// not retry; the response generator degrades to a fallback on any error.
type Client interface {
	Generate(ctx context.Context, systemInstruction, prompt string) (string, error)
}
