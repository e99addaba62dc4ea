// Package llm defines the Provider interface for Large Language Model
// backends.
//
// The simulation pipeline consumes LLMs as black-box text generators in four
// roles: the candidate agent's responder, the scripted user simulator, the
// hangup oracle and the quality judge. All four go through the same Complete
// contract so any backend can fill any role.
//
// Implementors must be safe for concurrent use; many simulations run in
// parallel against one Provider instance.
package llm

import "context"

// Usage holds token accounting returned by the backend. Counts are in the
// model's native token unit and differ between providers for the same text.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages
	// and system prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int
}

// CompletionRequest carries everything the model needs to produce a
// response. Messages must be non-empty unless SystemPrompt alone drives the
// output.
type CompletionRequest struct {
	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation history.
	SystemPrompt string

	// Messages is the ordered conversation history.
	Messages []Message

	// Temperature controls output randomness in [0.0, 2.0]. Zero requests
	// the provider default.
	Temperature float64

	// TopP is the nucleus-sampling parameter in (0.0, 1.0]. Zero requests
	// the provider default.
	TopP float64

	// MaxTokens caps completion length. Zero means provider default.
	MaxTokens int
}

// CompletionResponse is the model's full reply.
type CompletionResponse struct {
	// Content is the text of the reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
//
// Complete must propagate context cancellation promptly: a timed-out
// simulation abandons its in-flight call and the implementation must return
// as soon as ctx is done.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
