package processor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Engagic/engagic/pkg/identity"
	"github.com/Engagic/engagic/pkg/models"
	"github.com/Engagic/engagic/pkg/pdf"
	"github.com/Engagic/engagic/pkg/queue"
	"github.com/Engagic/engagic/pkg/store"
)

// processMatter produces the canonical summary for one matter from the union
// of attachments across every item that references it, then back-fills all
// of those items.
func (p *Processor) processMatter(ctx context.Context, matterID string) error {
	log := slog.With("matter_id", matterID)

	matter, err := p.store.Matters.Get(ctx, matterID)
	if store.IsNotFound(err) {
		return queue.Permanent(fmt.Errorf("matter %s does not exist", matterID))
	}
	if err != nil {
		return err
	}

	items, err := p.store.Items.ForMatter(ctx, matterID)
	if err != nil {
		return err
	}

	attachments := unionAttachments(matter, items)
	if len(attachments) == 0 {
		log.Info("Matter has no attachments, nothing to summarize")
		return nil
	}

	urls := make([]string, 0, len(attachments))
	for _, a := range attachments {
		urls = append(urls, a.URL)
	}

	var sb strings.Builder
	pages := 0
	for _, url := range pdf.FilterVersions(urls) {
		extraction, _, err := p.fetchAndExtract(ctx, url)
		if err != nil {
			return err
		}
		if extraction == nil {
			continue
		}
		sb.WriteString(extraction.Text)
		sb.WriteString("\n\n")
		pages += extraction.PageCount
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		log.Info("All matter attachments were low-value, skipping summary")
		return nil
	}

	summary, topics, err := p.summarizeItem(ctx, matter.Title, text, "", pages)
	if err != nil {
		return err
	}

	hash := identity.HashAttachments(attachments)
	if err := p.store.Matters.SaveCanonicalSummary(ctx, matterID, summary, topics, hash); err != nil {
		return err
	}

	updated, err := p.store.Items.BackfillMatterSummary(ctx, matterID, summary, topics)
	if err != nil {
		return err
	}

	log.Info("Matter summarized", "items_backfilled", updated, "pages", pages)
	return nil
}

// unionAttachments merges the matter's stored attachments with those of its
// referencing items, deduplicated by URL.
func unionAttachments(matter *models.Matter, items []models.AgendaItem) []models.Attachment {
	seen := make(map[string]bool)
	var out []models.Attachment
	add := func(attachments []models.Attachment) {
		for _, a := range attachments {
			if a.URL != "" && !seen[a.URL] {
				seen[a.URL] = true
				out = append(out, a)
			}
		}
	}
	add(matter.Attachments)
	for i := range items {
		add(items[i].Attachments)
	}
	return out
}
