package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/Engagic/engagic/pkg/models"
)

// HashAttachments fingerprints a set of attachments as SHA-256 over sorted
// "(url, name)" tuples. Attachment order does not affect the result, so a
// vendor reshuffling its agenda does not trigger re-summarization.
func HashAttachments(attachments []models.Attachment) string {
	if len(attachments) == 0 {
		return ""
	}
	tuples := make([]string, 0, len(attachments))
	for _, a := range attachments {
		tuples = append(tuples, a.URL+"\x00"+a.Name)
	}
	sort.Strings(tuples)
	sum := sha256.Sum256([]byte(strings.Join(tuples, "\x01")))
	return hex.EncodeToString(sum[:])
}

// HeadClient issues HEAD requests for the metadata-enhanced hash mode.
type HeadClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HashAttachmentsWithMetadata folds Content-Length and Last-Modified from a
// HEAD request into each tuple. Use when URLs are stable but content rotates
// behind them (some CDNs); it trades one round trip per attachment for
// fidelity. HEAD failures degrade to the plain tuple for that attachment.
func HashAttachmentsWithMetadata(ctx context.Context, client HeadClient, attachments []models.Attachment) string {
	if len(attachments) == 0 {
		return ""
	}
	tuples := make([]string, 0, len(attachments))
	for _, a := range attachments {
		tuple := a.URL + "\x00" + a.Name
		if meta := headMetadata(ctx, client, a.URL); meta != "" {
			tuple += "\x00" + meta
		}
		tuples = append(tuples, tuple)
	}
	sort.Strings(tuples)
	sum := sha256.Sum256([]byte(strings.Join(tuples, "\x01")))
	return hex.EncodeToString(sum[:])
}

func headMetadata(ctx context.Context, client HeadClient, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return ""
	}
	resp, err := client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}
	return fmt.Sprintf("%s|%s", resp.Header.Get("Content-Length"), resp.Header.Get("Last-Modified"))
}
