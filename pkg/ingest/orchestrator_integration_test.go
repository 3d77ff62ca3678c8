package ingest_test

import (
	"context"
	"testing"

	"github.com/Engagic/engagic/pkg/config"
	"github.com/Engagic/engagic/pkg/identity"
	"github.com/Engagic/engagic/pkg/ingest"
	"github.com/Engagic/engagic/pkg/models"
	"github.com/Engagic/engagic/pkg/queue"
	"github.com/Engagic/engagic/pkg/store"
	"github.com/Engagic/engagic/test/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupIngest(t *testing.T) (*store.Store, *queue.Queue, *ingest.Orchestrator) {
	pool := util.SetupTestDatabase(t)
	st := store.New(pool)
	require.NoError(t, st.Cities.Upsert(context.Background(), &models.City{
		Banana: "testca", Name: "Test City", State: "CA", Vendor: "legistar",
	}))
	q := queue.New(pool, config.Default().Queue)
	return st, q, ingest.New(st, q)
}

func councilRecord() models.MeetingRecord {
	return models.MeetingRecord{
		MeetingID: "12345",
		Title:     "City Council",
		Start:     "2026-09-01T18:00:00",
		AgendaURL: "https://example.com/agenda/12345",
		Items: []models.ItemRecord{
			{
				ItemID:     "1",
				Title:      "An ordinance rezoning Elm Street",
				Sequence:   1,
				MatterFile: "BL2026-100",
				MatterType: "ordinance",
				Sponsors:   []string{"Jane Smith"},
				Attachments: []models.AttachmentRecord{
					{Name: "Bill text", URL: "https://example.com/bill.pdf", Type: "pdf"},
				},
			},
			{
				ItemID:   "2",
				Title:    "Public Comment",
				Sequence: 2,
			},
		},
	}
}

func TestIngestCreatesMeetingItemsAndMatter(t *testing.T) {
	ctx := context.Background()
	st, q, orch := setupIngest(t)

	rec := councilRecord()
	result, err := orch.IngestMeeting(ctx, "testca", &rec)
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.Equal(t, 2, result.Items)
	assert.Equal(t, 1, result.MattersCreated)
	assert.True(t, result.Enqueued, "meeting with unprocessed items should enqueue")

	meeting, err := st.Meetings.Get(ctx, result.MeetingID)
	require.NoError(t, err)
	assert.Equal(t, "City Council", meeting.Title)
	assert.Equal(t, models.MeetingNormal, meeting.Status)
	require.NotNil(t, meeting.Date)

	items, err := st.Items.ForMeeting(ctx, result.MeetingID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// The ordinance is tracked as a matter; public comment is procedural.
	assert.NotEmpty(t, items[0].MatterID)
	assert.Empty(t, items[0].FilterReason)
	assert.Empty(t, items[1].MatterID)
	assert.Equal(t, "public_comment", items[1].FilterReason)

	matter, err := st.Matters.Get(ctx, items[0].MatterID)
	require.NoError(t, err)
	assert.Equal(t, "BL2026-100", matter.MatterFile)
	assert.Equal(t, 1, matter.AppearanceCount)
	assert.Equal(t, []string{"Jane Smith"}, matter.Sponsors)

	depth, err := q.Depth(ctx, "testca")
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

func TestIngestIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st, q, orch := setupIngest(t)

	rec := councilRecord()
	first, err := orch.IngestMeeting(ctx, "testca", &rec)
	require.NoError(t, err)

	second, err := orch.IngestMeeting(ctx, "testca", &rec)
	require.NoError(t, err)

	assert.Equal(t, first.MeetingID, second.MeetingID)
	assert.Equal(t, 0, second.MattersCreated)
	assert.False(t, second.Enqueued, "second ingest hits the queue dedup")

	items, err := st.Items.ForMeeting(ctx, first.MeetingID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	// Appearance count does not inflate on re-ingest of the same meeting.
	matter, err := st.Matters.Get(ctx, items[0].MatterID)
	require.NoError(t, err)
	assert.Equal(t, 1, matter.AppearanceCount)

	depth, err := q.Depth(ctx, "testca")
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

func TestIngestThreeReadingsAccumulateAppearances(t *testing.T) {
	ctx := context.Background()
	st, _, orch := setupIngest(t)

	var matterID string
	for i, start := range []string{"2026-09-01", "2026-09-15", "2026-10-01"} {
		rec := councilRecord()
		rec.MeetingID = rec.MeetingID + start
		rec.Start = start
		rec.AgendaURL = "https://example.com/agenda/" + start
		rec.Items = rec.Items[:1]

		result, err := orch.IngestMeeting(ctx, "testca", &rec)
		require.NoError(t, err)

		items, err := st.Items.ForMeeting(ctx, result.MeetingID)
		require.NoError(t, err)
		require.Len(t, items, 1)
		if i == 0 {
			matterID = items[0].MatterID
		} else {
			assert.Equal(t, matterID, items[0].MatterID, "same matter_file resolves to one matter")
		}
	}

	matter, err := st.Matters.Get(ctx, matterID)
	require.NoError(t, err)
	assert.Equal(t, 3, matter.AppearanceCount)

	appearances, err := st.Appearances.ForMatter(ctx, matterID)
	require.NoError(t, err)
	assert.Len(t, appearances, 3)
}

func TestIngestRecordsVotes(t *testing.T) {
	ctx := context.Background()
	st, _, orch := setupIngest(t)

	rec := councilRecord()
	rec.Items[0].Votes = []models.ItemVoteRecord{
		{Name: "Jane Smith", Vote: "aye", Sequence: 1},
		{Name: "Bob Jones", Vote: "nay", Sequence: 1},
	}
	result, err := orch.IngestMeeting(ctx, "testca", &rec)
	require.NoError(t, err)

	items, err := st.Items.ForMeeting(ctx, result.MeetingID)
	require.NoError(t, err)
	votes, err := st.Members.VotesForMatter(ctx, items[0].MatterID)
	require.NoError(t, err)
	assert.Len(t, votes, 2)
}

func TestIngestSkipsInvalidRecord(t *testing.T) {
	ctx := context.Background()
	_, q, orch := setupIngest(t)

	result, err := orch.IngestMeeting(ctx, "testca", &models.MeetingRecord{
		MeetingID: "999",
		Title:     "No source URLs here",
	})
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Contains(t, result.SkipReason, "agenda_url")

	depth, err := q.Depth(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestIngestSkipsEnqueueWhenNothingToProcess(t *testing.T) {
	ctx := context.Background()
	_, q, orch := setupIngest(t)

	// Agenda URL but no items and no packet: nothing to summarize.
	rec := models.MeetingRecord{
		MeetingID: "777",
		Title:     "Agenda-only notice",
		AgendaURL: "https://example.com/agenda/777",
	}
	result, err := orch.IngestMeeting(ctx, "testca", &rec)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.False(t, result.Enqueued)

	depth, err := q.Depth(ctx, "testca")
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestIngestAttachmentChangeTriggersResummarization(t *testing.T) {
	ctx := context.Background()
	st, _, orch := setupIngest(t)

	rec := councilRecord()
	rec.Items = rec.Items[:1]
	first, err := orch.IngestMeeting(ctx, "testca", &rec)
	require.NoError(t, err)

	items, err := st.Items.ForMeeting(ctx, first.MeetingID)
	require.NoError(t, err)
	matterID := items[0].MatterID
	require.NotEmpty(t, matterID)

	// Summarize the first reading's attachment set the way the processor does.
	matter, err := st.Matters.Get(ctx, matterID)
	require.NoError(t, err)
	summarizedHash := identity.HashAttachments(matter.Attachments)
	require.NoError(t, st.Matters.SaveCanonicalSummary(ctx, matterID, "Rezones Elm Street.", []string{"housing"}, summarizedHash))

	matter, err = st.Matters.Get(ctx, matterID)
	require.NoError(t, err)
	assert.False(t, ingest.MatterNeedsProcessing(matter), "summary covers the current attachments")

	// Second reading swaps in a substitute bill.
	rec2 := councilRecord()
	rec2.MeetingID = "12346"
	rec2.Start = "2026-09-15T18:00:00"
	rec2.AgendaURL = "https://example.com/agenda/12346"
	rec2.Items = rec2.Items[:1]
	rec2.Items[0].Attachments = []models.AttachmentRecord{
		{Name: "Substitute bill", URL: "https://example.com/substitute.pdf", Type: "pdf"},
	}
	_, err = orch.IngestMeeting(ctx, "testca", &rec2)
	require.NoError(t, err)

	// The recorded hash still names the summarized set, so the mismatch with
	// the refreshed attachments keeps the stale summary detectable.
	matter, err = st.Matters.Get(ctx, matterID)
	require.NoError(t, err)
	assert.Equal(t, summarizedHash, matter.Metadata.AttachmentHash)
	assert.NotEqual(t, summarizedHash, identity.HashAttachments(matter.Attachments))
	assert.True(t, ingest.MatterNeedsProcessing(matter), "changed attachments invalidate the canonical summary")
}

func TestIngestPacketOnlyMeetingNotRequeuedAfterSummary(t *testing.T) {
	ctx := context.Background()
	st, q, orch := setupIngest(t)

	rec := models.MeetingRecord{
		MeetingID: "555",
		Title:     "Special Meeting",
		Start:     "2026-09-01T18:00:00",
		PacketURL: models.StringList{"https://example.com/packet/555.pdf"},
	}
	first, err := orch.IngestMeeting(ctx, "testca", &rec)
	require.NoError(t, err)
	require.True(t, first.Enqueued, "packet-only meeting without a summary enqueues")

	// A worker summarizes the packet and completes the job.
	job, err := q.Dequeue(ctx, "testca")
	require.NoError(t, err)
	require.NoError(t, q.MarkComplete(ctx, job.ID))
	require.NoError(t, st.Meetings.SaveSummary(ctx, first.MeetingID,
		"The council met in special session.", nil, nil, "monolithic", 1))

	// Resync of the same record: the stored summary suppresses re-enqueue.
	second, err := orch.IngestMeeting(ctx, "testca", &rec)
	require.NoError(t, err)
	assert.False(t, second.Enqueued)

	got, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, got.Status)

	depth, err := q.Depth(ctx, "testca")
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestIngestTitleFallbackMatterAcrossMeetings(t *testing.T) {
	ctx := context.Background()
	st, _, orch := setupIngest(t)

	item := models.ItemRecord{
		ItemID:   "1",
		Title:    "Resolution honoring the transit budget amendment",
		Sequence: 1,
	}
	recA := models.MeetingRecord{
		MeetingID: "a", Title: "Budget Committee", Start: "2026-09-01",
		AgendaURL: "https://example.com/agenda/a", Items: []models.ItemRecord{item},
	}
	recB := models.MeetingRecord{
		MeetingID: "b", Title: "City Council", Start: "2026-09-08",
		AgendaURL: "https://example.com/agenda/b", Items: []models.ItemRecord{item},
	}

	resA, err := orch.IngestMeeting(ctx, "testca", &recA)
	require.NoError(t, err)
	resB, err := orch.IngestMeeting(ctx, "testca", &recB)
	require.NoError(t, err)

	itemsA, err := st.Items.ForMeeting(ctx, resA.MeetingID)
	require.NoError(t, err)
	itemsB, err := st.Items.ForMeeting(ctx, resB.MeetingID)
	require.NoError(t, err)
	require.NotEmpty(t, itemsA[0].MatterID)
	assert.Equal(t, itemsA[0].MatterID, itemsB[0].MatterID,
		"no vendor IDs: normalized title links the readings")
}

func TestIngestAllAccumulatesStats(t *testing.T) {
	ctx := context.Background()
	_, _, orch := setupIngest(t)

	good := councilRecord()
	bad := models.MeetingRecord{MeetingID: "x", Title: "missing source"}

	stats, err := orch.IngestAll(ctx, "testca", []models.MeetingRecord{good, bad})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Meetings)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 2, stats.Items)
	assert.Equal(t, 1, stats.MattersCreated)
	assert.Equal(t, 1, stats.Enqueued)
}
