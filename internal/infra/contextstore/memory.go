package contextstore

import (
	"context"
	"sync"

	"github.com/bryanwahyu/cve-advisor/internal/domain/advisory"
)

// Memory keeps the context for the life of the process only.
type Memory struct {
	mu sync.Mutex
	c  *advisory.Context
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(context.Context) (*advisory.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.c == nil {
		return nil, nil
	}
	cp := *m.c
	return &cp, nil
}

func (m *Memory) Save(_ context.Context, c advisory.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.AdditionalInfo = ""
	m.c = &c
	return nil
}
