package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Engagic/engagic/pkg/ingest"
	"github.com/Engagic/engagic/pkg/models"
	"github.com/Engagic/engagic/pkg/pdf"
	"github.com/Engagic/engagic/pkg/queue"
	"github.com/Engagic/engagic/pkg/store"
	"golang.org/x/sync/errgroup"
)

// processMeeting dispatches one meeting job: item-level when the agenda has
// item structure, monolithic when only a packet exists, skip otherwise.
func (p *Processor) processMeeting(ctx context.Context, meetingID string) error {
	log := slog.With("meeting_id", meetingID)
	started := time.Now()

	meeting, err := p.store.Meetings.Get(ctx, meetingID)
	if store.IsNotFound(err) {
		return queue.Permanent(fmt.Errorf("meeting %s does not exist", meetingID))
	}
	if err != nil {
		return err
	}

	if err := p.store.Meetings.SetProcessingStatus(ctx, meetingID, models.ProcessingInProgress); err != nil {
		return err
	}

	items, err := p.store.Items.ForMeeting(ctx, meetingID)
	if err != nil {
		return err
	}

	switch {
	case len(items) > 0:
		err = p.processItemLevel(ctx, meeting, items, started)
	case len(meeting.PacketURLs) > 0:
		err = p.processMonolithic(ctx, meeting, started)
	default:
		// Display-only meeting: agenda URL but nothing to summarize.
		log.Info("Meeting has no items and no packet, nothing to process")
		return p.store.Meetings.SetProcessingStatus(ctx, meetingID, models.ProcessingCompleted)
	}

	if err != nil {
		if statusErr := p.store.Meetings.SetProcessingStatus(context.WithoutCancel(ctx), meetingID, models.ProcessingFailed); statusErr != nil {
			log.Error("Failed to record failed status", "error", statusErr)
		}
		return err
	}
	return nil
}

// itemResult carries one completed item summarization.
type itemResult struct {
	itemID  string
	summary string
	topics  []string
}

// processItemLevel is the main path: per-item summaries with a shared
// document cache, canonical-summary reuse, and incremental persistence.
func (p *Processor) processItemLevel(ctx context.Context, meeting *models.Meeting, items []models.AgendaItem, started time.Time) error {
	log := slog.With("meeting_id", meeting.ID)

	participation := p.scrapeParticipation(ctx, meeting)

	pending, reused, err := p.partitionItems(ctx, meeting, items)
	if err != nil {
		return err
	}
	log.Info("Partitioned agenda items",
		"total", len(items), "pending", len(pending), "reused_canonical", reused)

	var results []itemResult
	var failed int

	if len(pending) > 0 {
		docs := p.buildDocumentCache(ctx, pending)
		shared := sharedContext(pending, docs)

		grp, grpCtx := errgroup.WithContext(ctx)
		resultCh := make(chan itemResult, len(pending))

		for i := range pending {
			item := pending[i]
			grp.Go(func() error {
				text := itemText(item, docs, shared.urls)
				summary, topics, err := p.summarizeItem(grpCtx, item.Title, text, shared.text, docPages(item, docs))
				if err != nil {
					// One bad item must not sink the batch; the job retry
					// picks up whatever is still pending.
					slog.Warn("Item summarization failed", "item_id", item.ID, "error", err)
					return nil
				}
				resultCh <- itemResult{itemID: item.ID, summary: summary, topics: topics}

				// Persist immediately so a crash mid-batch loses nothing.
				if err := p.store.Items.SaveSummary(grpCtx, item.ID, summary, topics); err != nil {
					return err
				}
				return p.propagateToMatter(grpCtx, &item, summary, topics)
			})
		}

		if err := grp.Wait(); err != nil {
			return err
		}
		close(resultCh)
		for r := range resultCh {
			results = append(results, r)
		}
		failed = len(pending) - len(results)
	}

	if failed > 0 {
		return fmt.Errorf("summarized %d of %d pending items, %d failed", len(results), len(pending), failed)
	}

	// Aggregate meeting metadata from every summarized item, including ones
	// persisted on earlier attempts.
	final, err := p.store.Items.ForMeeting(ctx, meeting.ID)
	if err != nil {
		return err
	}
	topics := aggregateTopics(final, p.cfg.Processor.TopicLimit)
	summary := composeMeetingSummary(final)
	mergeParticipation(meeting, participation)

	method := fmt.Sprintf("item_level_%d_items", countSummarized(final))
	elapsed := time.Since(started).Seconds()
	if err := p.store.Meetings.SaveSummary(ctx, meeting.ID, summary, topics, meeting.Participation, method, elapsed); err != nil {
		return err
	}

	log.Info("Meeting processed at item level",
		"items_summarized", countSummarized(final),
		"reused_canonical", reused,
		"elapsed_seconds", elapsed)
	return nil
}

// processMonolithic summarizes the whole packet in one call. Used when the
// vendor exposes no item structure.
func (p *Processor) processMonolithic(ctx context.Context, meeting *models.Meeting, started time.Time) error {
	extraction, lowValueReason, err := p.fetchAndExtract(ctx, meeting.PacketURLs[0])
	if err != nil {
		return err
	}
	if extraction == nil {
		slog.Info("Packet is low-value, marking processed without summary",
			"meeting_id", meeting.ID, "reason", lowValueReason)
		return p.store.Meetings.SetProcessingStatus(ctx, meeting.ID, models.ProcessingCompleted)
	}

	if scraped := pdf.ExtractParticipation(extraction.Text); scraped != nil {
		mergeParticipation(meeting, scraped)
	}

	summary, err := p.summarizeMeeting(ctx, extraction.Text)
	if err != nil {
		return err
	}

	elapsed := time.Since(started).Seconds()
	return p.store.Meetings.SaveSummary(ctx, meeting.ID, summary, nil, meeting.Participation, "monolithic", elapsed)
}

// partitionItems backfills items whose matter already has a current canonical
// summary, enqueues matter jobs for matters that need one, and returns the
// items that still need their own LLM call.
func (p *Processor) partitionItems(ctx context.Context, meeting *models.Meeting, items []models.AgendaItem) (pending []models.AgendaItem, reused int, err error) {
	matterIDs := make([]string, 0, len(items))
	for i := range items {
		if items[i].MatterID != "" {
			matterIDs = append(matterIDs, items[i].MatterID)
		}
	}
	matters, err := p.store.Matters.GetBatch(ctx, matterIDs)
	if err != nil {
		return nil, 0, err
	}

	enqueued := make(map[string]bool)
	for i := range items {
		item := items[i]
		if !item.Processable() {
			continue
		}

		if item.MatterID != "" {
			if matter, ok := matters[item.MatterID]; ok {
				// A sibling item elsewhere already paid for this summary.
				if matter.CanonicalSummary != "" && matter.Metadata.AttachmentHash == item.AttachmentHash {
					if err := p.store.Items.SaveSummary(ctx, item.ID, matter.CanonicalSummary, matter.CanonicalTopics); err != nil {
						return nil, 0, err
					}
					reused++
					continue
				}
				if ingest.MatterNeedsProcessing(&matter) && !enqueued[matter.ID] {
					enqueued[matter.ID] = true
					_, err := p.queue.EnqueueMatterJob(ctx, &matter, meeting.ID, nil, queue.MatterPriority())
					if err != nil && !errors.Is(err, queue.ErrAlreadyQueued) {
						return nil, 0, err
					}
				}
			}
		}
		pending = append(pending, item)
	}
	return pending, reused, nil
}

// propagateToMatter writes an item's fresh summary onto its matter as the
// canonical one, so sibling items in other meetings reuse it.
func (p *Processor) propagateToMatter(ctx context.Context, item *models.AgendaItem, summary string, topics []string) error {
	if item.MatterID == "" {
		return nil
	}
	err := p.store.Matters.SaveCanonicalSummary(ctx, item.MatterID, summary, topics, item.AttachmentHash)
	if store.IsNotFound(err) {
		// Matter row vanished (re-ingest cleared the link); not a failure.
		return nil
	}
	return err
}

// scrapeParticipation pulls contact details from the head of the agenda
// document. Best-effort: fetch failures only cost the participation block.
func (p *Processor) scrapeParticipation(ctx context.Context, meeting *models.Meeting) *models.Participation {
	source := meeting.SourceURL()
	if source == "" {
		return nil
	}
	extraction, _, err := p.fetchAndExtract(ctx, source)
	if err != nil || extraction == nil {
		return nil
	}
	return pdf.ExtractParticipation(extraction.Text)
}

func mergeParticipation(meeting *models.Meeting, scraped *models.Participation) {
	if scraped == nil {
		return
	}
	if meeting.Participation == nil {
		meeting.Participation = scraped
		return
	}
	meeting.Participation.Merge(scraped)
}

func countSummarized(items []models.AgendaItem) int {
	n := 0
	for i := range items {
		if items[i].Summary != "" {
			n++
		}
	}
	return n
}
