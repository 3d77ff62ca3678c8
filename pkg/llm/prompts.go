package llm

import (
	"fmt"
	"strings"
)

// Responses carry a "Summary" heading and a trailing "TOPICS:" line so
// parsing stays trivial and a malformed response degrades to using the whole
// text as the summary.
const topicsTag = "TOPICS:"

func meetingPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString(`You are summarizing a municipal meeting agenda packet for residents.
Write a plain-language summary of what the council or board will discuss and
decide. Lead with the items that most affect residents' daily lives (housing,
money, safety, services). Skip procedural items. Use short paragraphs under a
"Summary" heading.

AGENDA PACKET:
`)
	sb.WriteString(text)
	return sb.String()
}

func itemPrompt(title, text, sharedContext string, pageCount int) string {
	var sb strings.Builder
	sb.WriteString(`You are summarizing one agenda item from a municipal meeting for residents.
Explain in plain language what is proposed, what it would cost or change, and
who it affects. Two short paragraphs at most, under a "Summary" heading.
After the summary, output a single line starting with "TOPICS:" followed by
up to four comma-separated topic tags (e.g. housing, transit, budget).

ITEM TITLE: `)
	sb.WriteString(title)
	if pageCount > 0 {
		sb.WriteString(fmt.Sprintf("\nSUPPORTING MATERIAL: %d pages", pageCount))
	}
	if sharedContext != "" {
		sb.WriteString("\n\nSHARED MEETING CONTEXT (applies to several items):\n")
		sb.WriteString(sharedContext)
	}
	sb.WriteString("\n\nITEM DOCUMENTS:\n")
	sb.WriteString(text)
	return sb.String()
}

// parseResponse splits a model response into summary text and topic tags.
// Responses without a TOPICS line yield the whole text and no topics.
func parseResponse(response string) (string, []string) {
	summary := response
	var topics []string

	if idx := strings.LastIndex(response, topicsTag); idx >= 0 {
		line := response[idx+len(topicsTag):]
		if nl := strings.IndexByte(line, '\n'); nl >= 0 {
			line = line[:nl]
		}
		for _, t := range strings.Split(line, ",") {
			if t = strings.TrimSpace(t); t != "" {
				topics = append(topics, t)
			}
		}
		summary = response[:idx]
	}

	summary = strings.TrimSpace(summary)
	summary = strings.TrimLeft(summary, "# ")
	summary = strings.TrimPrefix(summary, "Summary")
	summary = strings.TrimSpace(strings.TrimLeft(summary, ": \n"))
	return summary, topics
}
