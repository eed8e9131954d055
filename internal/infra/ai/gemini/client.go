package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/bryanwahyu/cve-advisor/internal/domain/advisory"
)

const DefaultModel = "gemini-2.0-flash"

// Client is an advisory.Oracle backed by the Gemini API.
type Client struct {
	models *genai.Models
	model  string
}

var _ advisory.Oracle = (*Client)(nil)

// NewClient builds a Gemini oracle. httpClient may be nil.
func NewClient(ctx context.Context, apiKey, model string, httpClient *http.Client) (*Client, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{models: cli.Models, model: model}, nil
}

func (c *Client) Complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	t := temperature
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: &t,
	})
	if err != nil {
		return "", fmt.Errorf("%w: gemini generate: %v", advisory.ErrOracleUnavailable, err)
	}
	text := firstCandidateText(resp)
	if strings.TrimSpace(text) == "" {
		return "", advisory.ErrEmptyCompletion
	}
	return text, nil
}

// firstCandidateText joins the text parts of the first candidate.
func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}
