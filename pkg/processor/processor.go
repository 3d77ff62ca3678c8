// Package processor consumes queue jobs: meeting jobs summarize one
// meeting's agenda (item-level or monolithic), matter jobs produce a
// canonical summary for one legislative matter and back-fill its items.
package processor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Engagic/engagic/pkg/config"
	"github.com/Engagic/engagic/pkg/llm"
	"github.com/Engagic/engagic/pkg/models"
	"github.com/Engagic/engagic/pkg/pdf"
	"github.com/Engagic/engagic/pkg/queue"
	"github.com/Engagic/engagic/pkg/store"
	"golang.org/x/sync/semaphore"
)

// Processor implements queue.Executor.
type Processor struct {
	store      *store.Store
	queue      *queue.Queue
	fetcher    *pdf.Fetcher
	extractor  pdf.Extractor
	summarizer llm.Summarizer
	cfg        *config.Config

	// llmSem is the only proactive LLM throttle; rate limiting beyond it is
	// reactive inside the summarizer.
	llmSem *semaphore.Weighted
}

// New creates a Processor.
func New(st *store.Store, q *queue.Queue, fetcher *pdf.Fetcher, extractor pdf.Extractor, summarizer llm.Summarizer, cfg *config.Config) *Processor {
	return &Processor{
		store:      st,
		queue:      q,
		fetcher:    fetcher,
		extractor:  extractor,
		summarizer: summarizer,
		cfg:        cfg,
		llmSem:     semaphore.NewWeighted(int64(cfg.LLM.Concurrency)),
	}
}

// Execute dispatches one claimed job. Errors wrapped with queue.Permanent
// are not retried.
func (p *Processor) Execute(ctx context.Context, job *models.QueueJob) error {
	payload, err := models.DecodePayload(job.JobType, job.Payload)
	if err != nil {
		return queue.Permanent(err)
	}

	switch jp := payload.(type) {
	case *models.MeetingJob:
		return p.processMeeting(ctx, jp.MeetingID)
	case *models.MatterJob:
		return p.processMatter(ctx, jp.MatterID)
	default:
		return queue.Permanent(fmt.Errorf("unhandled payload type %T", payload))
	}
}

// summarizeItem runs one item-level LLM call under the concurrency semaphore
// and the per-item timeout.
func (p *Processor) summarizeItem(ctx context.Context, title, text, sharedContext string, pageCount int) (string, []string, error) {
	if err := p.llmSem.Acquire(ctx, 1); err != nil {
		return "", nil, err
	}
	defer p.llmSem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Processor.ItemTimeout)
	defer cancel()
	return p.summarizer.SummarizeItem(callCtx, title, text, sharedContext, pageCount)
}

// summarizeMeeting runs one monolithic LLM call under the semaphore.
func (p *Processor) summarizeMeeting(ctx context.Context, text string) (string, error) {
	if err := p.llmSem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.llmSem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Processor.ItemTimeout)
	defer cancel()
	return p.summarizer.SummarizeMeeting(callCtx, text)
}

// fetchAndExtract downloads one document and pulls its text, bounded by the
// extraction timeout. Low-value documents come back nil with a reason.
func (p *Processor) fetchAndExtract(ctx context.Context, url string) (*pdf.Extraction, string, error) {
	data, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, "", err
	}

	extractCtx, cancel := context.WithTimeout(ctx, p.cfg.Fetch.ExtractTimeout)
	defer cancel()

	extraction, err := p.extractor.Extract(extractCtx, data)
	if err != nil {
		return nil, "", fmt.Errorf("extract %s: %w", url, err)
	}
	if low, reason := pdf.LowValue(extraction); low {
		slog.Info("Skipping low-value document", "url", url, "reason", reason)
		return nil, reason, nil
	}
	return extraction, "", nil
}
