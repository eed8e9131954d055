package contexts

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/bryanwahyu/cve-advisor/internal/domain/advisory"
)

// Persister stores the single context object. Load returns (nil, nil) when
// nothing has been stored yet.
type Persister interface {
	Load(ctx context.Context) (*advisory.Context, error)
	Save(ctx context.Context, c advisory.Context) error
}

// Service owns the process-wide Context. Reads are lock-free; writes are
// serialized and publish a fresh object, so a reader sees either the old or
// the new value, never a mix.
// Service is safe for concurrent use.
type Service struct {
	persister Persister
	logger    *zap.Logger

	current atomic.Pointer[advisory.Context]
	writeMu sync.Mutex
}

// NewService loads the persisted context once. A failing or empty persister
// leaves the default in place.
func NewService(ctx context.Context, p Persister, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{persister: p, logger: logger.Named("contexts")}

	initial := advisory.DefaultContext()
	if p != nil {
		stored, err := p.Load(ctx)
		switch {
		case err != nil:
			s.logger.Warn("context load failed, using default", zap.Error(err))
		case stored != nil:
			initial = *stored
		}
	}
	initial.AdditionalInfo = ""
	s.current.Store(&initial)
	return s
}

// Get returns the current context. It never fails.
func (s *Service) Get() advisory.Context {
	if c := s.current.Load(); c != nil {
		return *c
	}
	return advisory.DefaultContext()
}

// Set replaces the whole context. Nothing is validated beyond being strings.
// When persisting fails the previous value stays current.
func (s *Service) Set(ctx context.Context, style, mode, language string) (advisory.Context, error) {
	next := advisory.NewContext(style, mode, language)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.persister != nil {
		if err := s.persister.Save(ctx, next); err != nil {
			return s.Get(), fmt.Errorf("persist context: %w", err)
		}
	}
	s.current.Store(&next)
	s.logger.Info("context replaced",
		zap.String("style", style),
		zap.String("mode", mode),
		zap.String("language", language),
	)
	return next, nil
}

// Context makes Service usable as an in-process advisory.ContextSource.
func (s *Service) Context(context.Context) (advisory.Context, error) {
	return s.Get(), nil
}
