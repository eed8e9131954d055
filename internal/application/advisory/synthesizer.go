package advisory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	domain "github.com/bryanwahyu/cve-advisor/internal/domain/advisory"
	"github.com/bryanwahyu/cve-advisor/internal/domain/vulns"
)

// Temperature is low enough for a stable table, high enough for the joke.
const Temperature float32 = 0.7

const (
	NoVulnerabilitiesMessage = "No vulnerabilities found! Your code is as flawless as a perfect algorithm."
	FailureMessage           = "This vulnerability analysis failed harder than my last coding project!"

	UrgencySuffix     = " This issue needs urgent attention. Please patch it ASAP!"
	ReassuranceSuffix = " It's a manageable issue, but better safe than sorry."
)

// Degradation reasons recorded on a run.
const (
	ReasonInputMalformed      = "input-malformed"
	ReasonContextUnavailable  = "context-unavailable"
	ReasonTemplateUnavailable = "template-unavailable"
	ReasonOracleFailure       = "oracle-failure"
	ReasonDeliveryFailure     = "delivery-failure"
)

// Report is the final text plus how it was produced.
type Report struct {
	Text         string `json:"text"`
	OracleCalled bool   `json:"oracle_called"`
	Degraded     bool   `json:"degraded"`
	Reason       string `json:"reason,omitempty"`
}

// Synthesizer turns ranked records into report text with one oracle call.
type Synthesizer struct {
	Oracle   domain.Oracle
	Composer domain.Composer
	Logger   *zap.Logger
}

// ModeSuffix is the sentence appended to a generated report for mode m.
func ModeSuffix(m domain.Mode) string {
	switch m.Canonical() {
	case domain.ModeError:
		return UrgencySuffix
	case domain.ModeDefault:
		return ReassuranceSuffix
	default:
		// devsecops, alert-only, humor, legal and anything unrecognized
		return ""
	}
}

// Synthesize never returns an empty text. An empty ranked list short-circuits
// without touching the oracle; oracle failures become FailureMessage.
func (s *Synthesizer) Synthesize(ctx context.Context, ranked []vulns.Record, c domain.Context, template string) (rep Report) {
	if len(ranked) == 0 {
		return Report{Text: NoVulnerabilitiesMessage}
	}

	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	req := domain.PromptRequest{
		Template:           template,
		Context:            c,
		TopVulnerabilities: ranked,
		AdditionalInfo:     c.AdditionalInfo,
	}
	p := s.Composer.Compose(req)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("oracle panicked", zap.Any("panic", r))
			rep = Report{Text: FailureMessage, OracleCalled: true, Degraded: true, Reason: ReasonOracleFailure}
		}
	}()

	out, err := s.Oracle.Complete(ctx, p, Temperature)
	if err == nil && strings.TrimSpace(out) == "" {
		err = domain.ErrEmptyCompletion
	}
	if err != nil {
		logger.Error("report generation failed", zap.Error(fmt.Errorf("synthesize: %w", err)))
		return Report{Text: FailureMessage, OracleCalled: true, Degraded: true, Reason: ReasonOracleFailure}
	}
	return Report{Text: out + ModeSuffix(c.Mode), OracleCalled: true}
}
