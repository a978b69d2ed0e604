// Package moderation wraps the external text-analysis service that turns
// raw feedback into a structured verdict. The service is treated as a
// fallible oracle: callers apply a permissive fallback when it is
// unreachable or returns output that does not validate.
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/campusvoice/feedback-service/internal/config"
)

// ErrUnavailable marks any transport, decode, or validation failure of the
// moderation call. It never reaches API callers; the lifecycle engine
// recovers with Fallback.
var ErrUnavailable = errors.New("moderation gateway unavailable")

// Verdict is the structured judgment for one piece of feedback text.
type Verdict struct {
	IsAppropriate bool
	RewrittenText string
	UrgencyScore  int
	Summary       string
}

// Gateway moderates raw feedback text.
type Gateway interface {
	Moderate(ctx context.Context, text string) (*Verdict, error)
}

// Fallback is the permissive verdict applied when the gateway fails:
// submission availability wins over moderation strictness. The summary is
// the first 100 characters of the text; truncation happens on rune
// boundaries so multi-byte input stays valid UTF-8.
func Fallback(text string) *Verdict {
	summary := text
	if runes := []rune(summary); len(runes) > 100 {
		summary = string(runes[:100])
	}
	return &Verdict{
		IsAppropriate: true,
		RewrittenText: text,
		UrgencyScore:  50,
		Summary:       summary,
	}
}

const systemPrompt = `Analyze this student feedback:

Text: %q

Provide JSON with:
1. is_appropriate: boolean (false if the text contains abuse or threats)
2. rewritten_text: neutral professional version
3. urgency_score: integer 0-100 based on severity
4. summary: brief 10-word summary

Respond ONLY with valid JSON.`

// HTTPGateway calls a generative-language API over plain HTTP.
type HTTPGateway struct {
	cfg    config.ModerationConfig
	client *http.Client
	logger *zap.Logger
}

// NewHTTPGateway builds the gateway with a timeout-bounded client.
func NewHTTPGateway(cfg config.ModerationConfig, logger *zap.Logger) *HTTPGateway {
	return &HTTPGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout()},
		logger: logger,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// rawVerdict uses pointers so missing fields are distinguishable from
// zero values when validating the model output.
type rawVerdict struct {
	IsAppropriate *bool   `json:"is_appropriate"`
	RewrittenText *string `json:"rewritten_text"`
	UrgencyScore  *int    `json:"urgency_score"`
	Summary       *string `json:"summary"`
}

// Moderate sends the feedback text for analysis and strictly validates the
// structured response.
func (g *HTTPGateway) Moderate(ctx context.Context, text string) (*Verdict, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: fmt.Sprintf(systemPrompt, text)}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrUnavailable, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(g.cfg.BaseURL, "/"), g.cfg.Model, g.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		g.logger.Warn("moderation call failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(gen.Candidates) == 0 || len(gen.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty candidate set", ErrUnavailable)
	}

	return parseVerdict(gen.Candidates[0].Content.Parts[0].Text)
}

// parseVerdict decodes the model's JSON verdict, rejecting free-form or
// partial output instead of trusting it.
func parseVerdict(text string) (*Verdict, error) {
	text = stripFences(text)

	var raw rawVerdict
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed verdict: %v", ErrUnavailable, err)
	}
	if raw.IsAppropriate == nil || raw.UrgencyScore == nil || raw.Summary == nil {
		return nil, fmt.Errorf("%w: verdict missing required fields", ErrUnavailable)
	}
	if *raw.UrgencyScore < 0 || *raw.UrgencyScore > 100 {
		return nil, fmt.Errorf("%w: urgency score %d out of range", ErrUnavailable, *raw.UrgencyScore)
	}
	if strings.TrimSpace(*raw.Summary) == "" {
		return nil, fmt.Errorf("%w: empty summary", ErrUnavailable)
	}

	verdict := &Verdict{
		IsAppropriate: *raw.IsAppropriate,
		UrgencyScore:  *raw.UrgencyScore,
		Summary:       strings.TrimSpace(*raw.Summary),
	}
	if raw.RewrittenText != nil {
		verdict.RewrittenText = strings.TrimSpace(*raw.RewrittenText)
	}
	return verdict, nil
}

// stripFences removes a markdown code fence the model sometimes wraps
// around its JSON output.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
