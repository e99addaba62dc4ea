// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to feed controlled responses to the simulator,
// hangup oracle and judge without a live LLM backend. Responses can be a
// fixed value, a scripted sequence, or a custom function.
//
// Example:
//
//	p := &mock.Provider{
//	    Script: []mock.Step{
//	        {Content: "Hello, I need help with my order."},
//	        {Content: "CONVERSATION_COMPLETE"},
//	    },
//	}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sonavox/callaudit/pkg/provider/llm"
)

// Step is one scripted response.
type Step struct {
	// Content is the completion text returned for this step.
	Content string

	// Err, if non-nil, is returned instead of a response.
	Err error

	// Delay blocks the call before responding, honoring ctx cancellation.
	// Useful for exercising simulation timeouts.
	Delay time.Duration
}

// Call records a single invocation of Complete.
type Call struct {
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider. Configure exactly one
// of Script, CompleteFunc or Response before use; zero value returns an
// empty response for every call. Safe for concurrent use.
type Provider struct {
	mu sync.Mutex

	// Script is a sequence of responses consumed one per call. Calls past
	// the end of the script return an error.
	Script []Step

	// Response, when Script is empty, is returned for every call.
	Response *llm.CompletionResponse

	// Err, when Script is empty, is returned for every call.
	Err error

	// CompleteFunc, if set, overrides all other fields.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	// Calls records every invocation of Complete in order.
	Calls []Call

	next int
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, Call{Req: req})

	if p.CompleteFunc != nil {
		fn := p.CompleteFunc
		p.mu.Unlock()
		return fn(ctx, req)
	}

	if len(p.Script) == 0 {
		resp, err := p.Response, p.Err
		p.mu.Unlock()
		if resp == nil && err == nil {
			return &llm.CompletionResponse{}, nil
		}
		return resp, err
	}

	if p.next >= len(p.Script) {
		n := p.next
		p.mu.Unlock()
		return nil, fmt.Errorf("mock: script exhausted after %d calls", n)
	}
	step := p.Script[p.next]
	p.next++
	p.mu.Unlock()

	if step.Delay > 0 {
		select {
		case <-time.After(step.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if step.Err != nil {
		return nil, step.Err
	}
	return &llm.CompletionResponse{Content: step.Content}, nil
}

// CallCount returns how many times Complete was invoked. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears recorded calls and rewinds the script. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
	p.next = 0
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
