package sheet

import (
	"context"
	"fmt"
	"sync"
)

// Provider builds a Backend on first use and keeps it. A failed build is
// attempted again on the next call.
type Provider struct {
	build func(ctx context.Context) (Backend, error)

	mu      sync.Mutex
	backend Backend
}

func NewProvider(build func(ctx context.Context) (Backend, error)) *Provider {
	return &Provider{build: build}
}

func (p *Provider) Backend(ctx context.Context) (Backend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.backend != nil {
		return p.backend, nil
	}

	b, err := p.build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build backend: %w", err)
	}
	p.backend = b

	return b, nil
}
