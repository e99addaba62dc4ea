package cli

import (
	"context"

	"github.com/sonavox/callaudit/internal/observe"
	"github.com/sonavox/callaudit/pkg/provider/llm"
)

// instrumentedProvider counts LLM requests and errors per role and provider
// family.
type instrumentedProvider struct {
	next   llm.Provider
	m      *observe.Metrics
	role   string
	family string
}

var _ llm.Provider = (*instrumentedProvider)(nil)

func instrumentProvider(next llm.Provider, m *observe.Metrics, role, family string) llm.Provider {
	return &instrumentedProvider{next: next, m: m, role: role, family: family}
}

func (p *instrumentedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	resp, err := p.next.Complete(ctx, req)
	if err != nil {
		p.m.RecordLLMRequest(ctx, p.role, p.family, "error")
		p.m.RecordLLMError(ctx, p.role, p.family)
		return nil, err
	}
	p.m.RecordLLMRequest(ctx, p.role, p.family, "ok")
	return resp, nil
}
