package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Engagic/engagic/pkg/config"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
)

// AnthropicSummarizer implements Summarizer over the Anthropic Messages API.
// Rate limiting is reactive: no token bucket, just honoring 429/5xx with
// exponential backoff inside the configured retry budget.
type AnthropicSummarizer struct {
	client anthropic.Client
	cfg    *config.LLMConfig
}

// NewAnthropicSummarizer creates the summarizer. The API key comes from the
// environment variable named in cfg.
func NewAnthropicSummarizer(cfg *config.LLMConfig) (*AnthropicSummarizer, error) {
	key := cfg.APIKey()
	if key == "" {
		return nil, fmt.Errorf("LLM API key not set: export %s", cfg.APIKeyEnv)
	}
	return &AnthropicSummarizer{
		client: anthropic.NewClient(option.WithAPIKey(key)),
		cfg:    cfg,
	}, nil
}

// SummarizeMeeting implements Summarizer.
func (s *AnthropicSummarizer) SummarizeMeeting(ctx context.Context, text string) (string, error) {
	response, err := s.call(ctx, meetingPrompt(text))
	if err != nil {
		return "", err
	}
	summary, _ := parseResponse(response)
	return summary, nil
}

// SummarizeItem implements Summarizer.
func (s *AnthropicSummarizer) SummarizeItem(ctx context.Context, title, text, sharedContext string, pageCount int) (string, []string, error) {
	response, err := s.call(ctx, itemPrompt(title, text, sharedContext, pageCount))
	if err != nil {
		return "", nil, err
	}
	summary, topics := parseResponse(response)
	return summary, NormalizeTopics(topics), nil
}

// call sends one prompt, retrying transient failures until the retry budget
// is exhausted or ctx expires.
func (s *AnthropicSummarizer) call(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.cfg.Model),
		MaxTokens: int64(s.cfg.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = s.cfg.RetryBudget
	limited := &rateLimitBackOff{BackOff: policy}

	var response string
	operation := func() error {
		message, err := s.client.Messages.New(ctx, params)
		if err != nil {
			err = classify(err)
			if !IsRetryable(err) {
				return backoff.Permanent(err)
			}
			limited.observe(err)
			slog.Warn("LLM call failed, retrying", "error", err)
			return err
		}
		if len(message.Content) == 0 {
			return backoff.Permanent(fmt.Errorf("empty response from model"))
		}
		response = message.Content[0].Text
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(limited, ctx)); err != nil {
		return "", fmt.Errorf("summarization failed: %w", err)
	}
	return response, nil
}

// rateLimitBackOff stretches the next retry delay to at least the provider's
// Retry-After hint when a rate-limit response carried one. The hint applies to
// one delay only; later retries fall back to the exponential schedule.
type rateLimitBackOff struct {
	backoff.BackOff
	hint time.Duration
}

// observe captures the Retry-After hint from a classified failure.
func (b *rateLimitBackOff) observe(err error) {
	var rle *RateLimitError
	if errors.As(err, &rle) && rle.RetryAfter > 0 {
		b.hint = rle.RetryAfter
	}
}

func (b *rateLimitBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if b.hint > next {
		next = b.hint
	}
	b.hint = 0
	return next
}

func (b *rateLimitBackOff) Reset() {
	b.hint = 0
	b.BackOff.Reset()
}

// classify maps SDK and transport errors onto the package's retryability
// types. Rate limits come back distinguishable so callers can track them.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return &RateLimitError{RetryAfter: retryAfter(apiErr.Response), Err: err}
		case apiErr.StatusCode >= 500:
			return &TransientError{Err: err}
		default:
			return err
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransientError{Err: err}
	}
	return err
}

func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	seconds, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
