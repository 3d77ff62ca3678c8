package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Engagic/engagic/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestHashAttachmentsPermutationInvariant(t *testing.T) {
	a := []models.Attachment{
		{Name: "Ordinance", URL: "/o.pdf"},
		{Name: "Staff Report", URL: "/s.pdf"},
		{Name: "Exhibit A", URL: "/e.pdf"},
	}
	b := []models.Attachment{a[2], a[0], a[1]}

	assert.Equal(t, HashAttachments(a), HashAttachments(b))
}

func TestHashAttachmentsSensitiveToContent(t *testing.T) {
	v1 := HashAttachments([]models.Attachment{{Name: "Ordinance", URL: "/o.pdf"}})
	v2 := HashAttachments([]models.Attachment{{Name: "Ordinance", URL: "/o-v2.pdf"}})
	renamed := HashAttachments([]models.Attachment{{Name: "Ordinance v2", URL: "/o.pdf"}})

	assert.NotEqual(t, v1, v2)
	assert.NotEqual(t, v1, renamed)
}

func TestHashAttachmentsEmpty(t *testing.T) {
	assert.Empty(t, HashAttachments(nil))
	assert.Empty(t, HashAttachments([]models.Attachment{}))
}

func TestHashAttachmentsIgnoresType(t *testing.T) {
	plain := HashAttachments([]models.Attachment{{Name: "A", URL: "/a.pdf"}})
	typed := HashAttachments([]models.Attachment{{Name: "A", URL: "/a.pdf", Type: "pdf"}})
	assert.Equal(t, plain, typed)
}

func TestHashAttachmentsWithMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Last-Modified", "Tue, 10 Jun 2025 00:00:00 GMT")
		w.Header().Set("Content-Length", "1024")
	}))
	defer srv.Close()

	atts := []models.Attachment{{Name: "Ordinance", URL: srv.URL + "/o.pdf"}}
	withMeta := HashAttachmentsWithMetadata(context.Background(), srv.Client(), atts)
	plain := HashAttachments(atts)

	assert.NotEmpty(t, withMeta)
	assert.NotEqual(t, plain, withMeta)
}

func TestHashAttachmentsWithMetadataDegradesOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	atts := []models.Attachment{{Name: "Ordinance", URL: srv.URL + "/o.pdf"}}
	// A failed HEAD falls back to the plain tuple.
	assert.Equal(t, HashAttachments(atts), HashAttachmentsWithMetadata(context.Background(), srv.Client(), atts))
}
