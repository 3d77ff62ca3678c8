package pdf

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Engagic/engagic/pkg/models"
)

// Low-value document thresholds. Public-comment compilations are enormous,
// mostly scanned, and full of form letters; summarizing them burns tokens
// for no signal.
const (
	maxPages          = 1000
	ocrRatioThreshold = 0.30
	ocrMinPages       = 50
	maxSignatures     = 20
)

// LowValue reports whether an extraction should be skipped, with a reason.
func LowValue(e *Extraction) (bool, string) {
	if e.PageCount > maxPages {
		return true, fmt.Sprintf("page count %d exceeds %d", e.PageCount, maxPages)
	}
	if e.PageCount > ocrMinPages {
		ratio := float64(e.OCRPages) / float64(e.PageCount)
		if ratio > ocrRatioThreshold {
			return true, fmt.Sprintf("scanned-page ratio %.0f%% on %d pages", ratio*100, e.PageCount)
		}
	}
	if n := strings.Count(e.Text, "Sincerely,"); n > maxSignatures {
		return true, fmt.Sprintf("%d letter signatures, likely a comment compilation", n)
	}
	return false, ""
}

var versionPattern = regexp.MustCompile(`(?i)[_\s-]?Ver(\d+)`)

// FilterVersions drops superseded document versions: for URLs that differ
// only by a "VerN" marker, only the highest N survives. URLs without a
// version marker pass through untouched, in order.
func FilterVersions(urls []string) []string {
	type candidate struct {
		url     string
		version int
	}
	best := make(map[string]candidate)
	var order []string
	var unversioned []string

	for _, u := range urls {
		m := versionPattern.FindStringSubmatch(u)
		if m == nil {
			unversioned = append(unversioned, u)
			continue
		}
		version, _ := strconv.Atoi(m[1])
		base := versionPattern.ReplaceAllString(u, "")
		if prev, ok := best[base]; !ok {
			best[base] = candidate{u, version}
			order = append(order, base)
		} else if version > prev.version {
			best[base] = candidate{u, version}
		}
	}

	out := make([]string, 0, len(unversioned)+len(order))
	out = append(out, unversioned...)
	for _, base := range order {
		out = append(out, best[base].url)
	}
	return out
}

// participationWindow is how much of the agenda head is scanned for contact
// details; they appear in the header block when they appear at all.
const participationWindow = 5000

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\(?\d{3}\)?[-.\s]\d{3}[-.\s]?\d{4}`)
	// Virtual meeting links from the major platforms.
	virtualPattern = regexp.MustCompile(`https?://[^\s)]*(?:zoom\.us|webex\.com|teams\.microsoft\.com|youtube\.com|youtu\.be)[^\s)]*`)
)

// ExtractParticipation scrapes public-participation contact details from the
// head of an agenda text. Returns nil when nothing was found.
func ExtractParticipation(text string) *models.Participation {
	if len(text) > participationWindow {
		text = text[:participationWindow]
	}

	p := &models.Participation{}
	if m := emailPattern.FindString(text); m != "" {
		p.Email = m
	}
	if m := phonePattern.FindString(text); m != "" {
		p.Phone = strings.TrimSpace(m)
	}
	if m := virtualPattern.FindString(text); m != "" {
		p.VirtualURL = m
	}
	if p.IsEmpty() {
		return nil
	}
	return p
}
