package analysis

import "context"

// GenerateRequest is a single-turn request to the AI capability.
type GenerateRequest struct {
	System      string
	Prompt      string
	MaxTokens   int32
	Temperature float32
}

// ModelClient is the boundary interface to the external AI capability. Both
// analysis calls (extraction, risk) go through it; implementations are
// treated as black boxes returning text.
type ModelClient interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}
