package advisory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/cve-advisor/internal/application"
	domain "github.com/bryanwahyu/cve-advisor/internal/domain/advisory"
	"github.com/bryanwahyu/cve-advisor/internal/domain/vulns"
)

// ErrNotConfigured is returned when a required collaborator is missing.
var ErrNotConfigured = errors.New("pipeline not configured")

// TemplateSource yields the humor template for a run. Implementations fall
// back to a built-in template themselves and report whether they did.
type TemplateSource interface {
	Template() (tpl string, fallback bool)
}

// Observer receives pipeline outcomes, e.g. for metrics.
type Observer interface {
	ReportGenerated(degraded bool)
	OracleFailed()
	DeliveryFailed()
}

// RunStore persists finished runs beyond the in-memory registry.
type RunStore interface {
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	LatestRuns(ctx context.Context, limit int) ([]Run, error)
}

type nopObserver struct{}

func (nopObserver) ReportGenerated(bool) {}
func (nopObserver) OracleFailed()        {}
func (nopObserver) DeliveryFailed()      {}

// Service implements the report pipeline:
// normalize -> rank -> context -> compose -> synthesize -> deliver.
// Service is designed to be used concurrently; runs share nothing but the
// context source.
type Service struct {
	Contexts    domain.ContextSource
	Templates   TemplateSource
	Synth       *Synthesizer
	Delivery    domain.Delivery
	Archive     domain.Archive // optional
	Runs        *Registry
	History     RunStore // optional
	Clock       application.Clock
	Observer    Observer
	Logger      *zap.Logger
	ProjectInfo string
	ScanLogPath string

	inflight sync.WaitGroup
}

// RunCommand describes one pipeline run. Records, when non-nil, replace the
// scan-log file.
type RunCommand struct {
	ScanLogPath string
	Records     []vulns.Record
	Trigger     string
}

type RunResult struct {
	ID        string
	Report    Report
	Ranked    []vulns.Record
	Context   domain.Context
	Delivered bool
	Degraded  []string
}

func (s *Service) validate() error {
	if s.Synth == nil || s.Synth.Oracle == nil || s.Synth.Composer == nil {
		return fmt.Errorf("%w: synthesizer", ErrNotConfigured)
	}
	if s.Delivery == nil {
		return fmt.Errorf("%w: delivery", ErrNotConfigured)
	}
	return nil
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) observer() Observer {
	if s.Observer == nil {
		return nopObserver{}
	}
	return s.Observer
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

// Start queues a run in the background and returns its id right away.
// The run uses its own context so it outlives the caller's request.
func (s *Service) Start(cmd RunCommand) (string, error) {
	if err := s.validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	if s.Runs != nil {
		s.Runs.put(Run{ID: id, Trigger: cmd.Trigger, Status: RunQueued, QueuedAt: s.now()})
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if _, err := s.run(context.Background(), id, cmd); err != nil {
			s.logger().Error("background run failed", zap.String("run_id", id), zap.Error(err))
		}
	}()
	return id, nil
}

// Wait blocks until every run queued by Start has finished or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes one pipeline run synchronously. Every recoverable problem is
// replaced by a safe default; only configuration errors are returned.
func (s *Service) Run(ctx context.Context, cmd RunCommand) (RunResult, error) {
	if err := s.validate(); err != nil {
		return RunResult{}, err
	}
	return s.run(ctx, uuid.NewString(), cmd)
}

func (s *Service) run(ctx context.Context, id string, cmd RunCommand) (RunResult, error) {
	log := s.logger().With(zap.String("run_id", id))
	res := RunResult{ID: id}
	state := Run{ID: id, Trigger: cmd.Trigger, Status: RunRunning, QueuedAt: s.now()}
	if s.Runs != nil {
		if prev, ok := s.Runs.Get(id); ok {
			state.QueuedAt = prev.QueuedAt
		}
		s.Runs.put(state)
	}

	// 1. scan log
	records := cmd.Records
	if records == nil {
		path := cmd.ScanLogPath
		if path == "" {
			path = s.ScanLogPath
		}
		var err error
		records, err = vulns.LoadFile(path)
		if err != nil {
			log.Warn("scan log unusable, continuing with no findings", zap.String("path", path), zap.Error(err))
			res.Degraded = append(res.Degraded, ReasonInputMalformed)
		}
	}

	// 2. rank
	res.Ranked = vulns.SortBySeverity(records)

	// 3. context
	c, err := s.fetchContext(ctx)
	if err != nil {
		log.Warn("context unavailable, using default", zap.Error(err))
		res.Degraded = append(res.Degraded, ReasonContextUnavailable)
		c = domain.DefaultContext()
	}
	c = c.WithInfo(s.ProjectInfo)
	res.Context = c

	// 4+5. compose and synthesize
	var tpl string
	if s.Templates != nil {
		var fallback bool
		tpl, fallback = s.Templates.Template()
		if fallback {
			res.Degraded = append(res.Degraded, ReasonTemplateUnavailable)
		}
	}
	res.Report = s.Synth.Synthesize(ctx, res.Ranked, c, tpl)
	if res.Report.Degraded {
		res.Degraded = append(res.Degraded, res.Report.Reason)
		s.observer().OracleFailed()
	}
	s.observer().ReportGenerated(res.Report.Degraded)

	// 6. deliver, tanpa retry
	if err := s.Delivery.Send(ctx, res.Report.Text); err != nil {
		log.Error("report delivery failed", zap.Error(err))
		res.Degraded = append(res.Degraded, ReasonDeliveryFailure)
		s.observer().DeliveryFailed()
	} else {
		res.Delivered = true
		log.Info("report delivered",
			zap.Int("findings", len(res.Ranked)),
			zap.String("mode", string(c.Mode)),
			zap.Bool("degraded", res.Report.Degraded),
		)
	}

	// archive is best effort
	var archiveURL string
	if s.Archive != nil {
		key := fmt.Sprintf("reports/%s/%s.md", s.now().Format("2006/01/02"), id)
		url, err := s.Archive.Put(ctx, key, []byte(res.Report.Text), "text/markdown; charset=utf-8")
		if err != nil {
			log.Warn("report archive failed", zap.String("key", key), zap.Error(err))
		} else {
			archiveURL = url
		}
	}

	done := s.now()
	state.Status = RunDone
	state.FinishedAt = &done
	state.Findings = len(res.Ranked)
	state.Degraded = res.Degraded
	state.Delivered = res.Delivered
	state.ArchiveURL = archiveURL
	state.ReportBytes = len(res.Report.Text)
	if s.Runs != nil {
		s.Runs.put(state)
	}
	if s.History != nil {
		if err := s.History.SaveRun(ctx, state); err != nil {
			log.Warn("run history save failed", zap.Error(err))
		}
	}
	return res, nil
}

// Lookup finds a run in memory first, then in history.
func (s *Service) Lookup(ctx context.Context, id string) (Run, bool, error) {
	if s.Runs != nil {
		if run, ok := s.Runs.Get(id); ok {
			return run, true, nil
		}
	}
	if s.History == nil {
		return Run{}, false, nil
	}
	run, err := s.History.GetRun(ctx, id)
	if err != nil {
		return Run{}, false, fmt.Errorf("lookup run %s: %w", id, err)
	}
	if run == nil {
		return Run{}, false, nil
	}
	return *run, true, nil
}

// Recent lists runs newest first. Runs still in memory win over their
// history rows, so queued and running runs show up before they are saved.
func (s *Service) Recent(ctx context.Context, limit int) ([]Run, error) {
	var live []Run
	if s.Runs != nil {
		live = s.Runs.Latest(limit)
	}
	if s.History == nil {
		return live, nil
	}
	stored, err := s.History.LatestRuns(ctx, limit)
	if err != nil {
		s.logger().Warn("run history unavailable", zap.Error(err))
		return live, nil
	}

	seen := make(map[string]bool, len(live))
	out := make([]Run, 0, len(live)+len(stored))
	for _, run := range live {
		seen[run.ID] = true
		out = append(out, run)
	}
	for _, run := range stored {
		if !seen[run.ID] {
			seen[run.ID] = true
			out = append(out, run)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].QueuedAt.After(out[j].QueuedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Service) fetchContext(ctx context.Context) (c domain.Context, err error) {
	if s.Contexts == nil {
		return domain.DefaultContext(), errors.New("no context source")
	}
	return s.Contexts.Context(ctx)
}
