package processor

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/Engagic/engagic/pkg/models"
	"github.com/Engagic/engagic/pkg/pdf"
)

// buildDocumentCache fetches and extracts every unique attachment URL across
// the pending items exactly once. Superseded document versions are dropped
// first. Failed and low-value documents are simply absent from the cache.
func (p *Processor) buildDocumentCache(ctx context.Context, items []models.AgendaItem) map[string]*pdf.Extraction {
	unique := make(map[string]bool)
	var order []string
	for i := range items {
		for _, url := range itemURLs(&items[i]) {
			if !unique[url] {
				unique[url] = true
				order = append(order, url)
			}
		}
	}

	docs := make(map[string]*pdf.Extraction, len(order))
	for _, url := range order {
		extraction, _, err := p.fetchAndExtract(ctx, url)
		if err != nil {
			slog.Warn("Failed to fetch document", "url", url, "error", err)
			continue
		}
		if extraction != nil {
			docs[url] = extraction
		}
	}
	return docs
}

// itemURLs returns an item's attachment URLs with superseded versions removed.
func itemURLs(item *models.AgendaItem) []string {
	urls := make([]string, 0, len(item.Attachments))
	for _, a := range item.Attachments {
		if a.URL != "" {
			urls = append(urls, a.URL)
		}
	}
	return pdf.FilterVersions(urls)
}

// sharedDocs is the context passed once per LLM call for documents that
// several items reference, instead of repeating the text per item.
type sharedDocs struct {
	text string
	urls map[string]bool
}

// sharedContext finds documents referenced by more than one item and builds
// their combined text.
func sharedContext(items []models.AgendaItem, docs map[string]*pdf.Extraction) sharedDocs {
	refs := make(map[string]int)
	for i := range items {
		for _, url := range itemURLs(&items[i]) {
			refs[url]++
		}
	}

	shared := sharedDocs{urls: make(map[string]bool)}
	var urls []string
	for url, count := range refs {
		if count > 1 {
			if _, ok := docs[url]; ok {
				shared.urls[url] = true
				urls = append(urls, url)
			}
		}
	}
	sort.Strings(urls)

	var sb strings.Builder
	for _, url := range urls {
		sb.WriteString(docs[url].Text)
		sb.WriteString("\n\n")
	}
	shared.text = strings.TrimSpace(sb.String())
	return shared
}

// itemText builds the item-specific document text, excluding shared docs.
func itemText(item models.AgendaItem, docs map[string]*pdf.Extraction, sharedURLs map[string]bool) string {
	var sb strings.Builder
	for _, url := range itemURLs(&item) {
		if sharedURLs[url] {
			continue
		}
		if extraction, ok := docs[url]; ok {
			sb.WriteString(extraction.Text)
			sb.WriteString("\n\n")
		}
	}
	return strings.TrimSpace(sb.String())
}

// docPages totals the page counts of an item's cached documents.
func docPages(item models.AgendaItem, docs map[string]*pdf.Extraction) int {
	pages := 0
	for _, url := range itemURLs(&item) {
		if extraction, ok := docs[url]; ok {
			pages += extraction.PageCount
		}
	}
	return pages
}

// aggregateTopics unions per-item topics ordered by frequency, most common
// first, capped at limit. Ties break alphabetically so the result is stable.
func aggregateTopics(items []models.AgendaItem, limit int) []string {
	counts := make(map[string]int)
	for i := range items {
		for _, topic := range items[i].Topics {
			counts[topic]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	topics := make([]string, 0, len(counts))
	for topic := range counts {
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(a, b int) bool {
		if counts[topics[a]] != counts[topics[b]] {
			return counts[topics[a]] > counts[topics[b]]
		}
		return topics[a] < topics[b]
	})

	if len(topics) > limit {
		topics = topics[:limit]
	}
	return topics
}

// composeMeetingSummary builds the meeting digest from summarized items, in
// agenda order.
func composeMeetingSummary(items []models.AgendaItem) string {
	var sb strings.Builder
	for i := range items {
		if items[i].Summary == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(items[i].Title)
		sb.WriteString("\n")
		sb.WriteString(items[i].Summary)
	}
	return sb.String()
}
