package advisory

import (
	"context"

	"github.com/bryanwahyu/cve-advisor/internal/domain/vulns"
)

// Oracle is the text-generation backend, called once per report.
type Oracle interface {
	Complete(ctx context.Context, prompt string, temperature float32) (string, error)
}

// ContextSource yields the current Context for a run.
type ContextSource interface {
	Context(ctx context.Context) (Context, error)
}

// Delivery posts a finished report to the chat channel.
type Delivery interface {
	Send(ctx context.Context, text string) error
}

// Archive keeps a copy of delivered reports.
type Archive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// PromptRequest is everything the composer needs for one run.
type PromptRequest struct {
	Template           string
	Context            Context
	TopVulnerabilities []vulns.Record
	AdditionalInfo     string
}

// Composer turns a request into the single prompt sent to the Oracle.
type Composer interface {
	Compose(req PromptRequest) string
}
