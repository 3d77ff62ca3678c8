package pdf

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/semaphore"
)

// Extraction is the result of pulling text out of one document.
type Extraction struct {
	Text      string
	PageCount int
	OCRPages  int // pages that yielded no extractable text (scanned images)
}

// Extractor pulls plain text from raw document bytes. Implementations are
// CPU-bound and must respect ctx cancellation.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*Extraction, error)
}

// PlainTextExtractor extracts text with ledongthuc/pdf. CPU-bound work runs
// under a weighted semaphore sized to the machine so a burst of huge packets
// cannot starve the worker goroutines.
type PlainTextExtractor struct {
	sem *semaphore.Weighted
}

// NewPlainTextExtractor creates the default extractor. workers <= 0 means
// one slot per CPU.
func NewPlainTextExtractor(workers int) *PlainTextExtractor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &PlainTextExtractor{sem: semaphore.NewWeighted(int64(workers))}
}

// Extract implements Extractor. The caller bounds total time via ctx; a
// document that cannot be parsed before the deadline is abandoned.
func (e *PlainTextExtractor) Extract(ctx context.Context, data []byte) (*Extraction, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	type outcome struct {
		result *Extraction
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := extract(data)
		done <- outcome{result, err}
	}()

	select {
	case <-ctx.Done():
		// The parsing goroutine finishes on its own and is collected; there
		// is no way to interrupt the parser mid-document.
		return nil, ctx.Err()
	case out := <-done:
		return out.result, out.err
	}
}

func extract(data []byte) (*Extraction, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	result := &Extraction{PageCount: reader.NumPage()}
	var sb strings.Builder

	for i := 1; i <= result.PageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			result.OCRPages++
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(text) == "" {
			// No text layer; almost always a scanned page.
			result.OCRPages++
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	result.Text = sb.String()
	return result, nil
}
