package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/Engagic/engagic/pkg/models"
	"github.com/Engagic/engagic/pkg/store"
	"github.com/Engagic/engagic/test/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T, banana string) *store.Store {
	st := store.New(util.SetupTestDatabase(t))
	require.NoError(t, st.Cities.Upsert(context.Background(), &models.City{
		Banana: banana, Name: "Test City", State: "CA", Vendor: "legistar",
	}))
	return st
}

func testMeeting(banana, id string) *models.Meeting {
	date := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	return &models.Meeting{
		ID:        id,
		Banana:    banana,
		Title:     "City Council Regular Meeting",
		Date:      &date,
		AgendaURL: "https://example.com/agenda/" + id,
	}
}

func TestMeetingUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t, "testca")

	m := testMeeting("testca", "m1")
	require.NoError(t, st.Meetings.Upsert(ctx, m))
	require.NoError(t, st.Meetings.Upsert(ctx, m))

	got, err := st.Meetings.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "City Council Regular Meeting", got.Title)
	assert.Equal(t, models.ProcessingPending, got.ProcessingStatus)
}

func TestMeetingUpsertPreservesSummary(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t, "testca")

	m := testMeeting("testca", "m1")
	require.NoError(t, st.Meetings.Upsert(ctx, m))
	require.NoError(t, st.Meetings.SaveSummary(ctx, "m1", "The council approved things.",
		[]string{"housing"}, &models.Participation{Email: "clerk@city.gov"}, "monolithic", 12.5))

	// Re-ingest of the same meeting must not clobber processing results.
	m.Title = "City Council Regular Meeting (Revised)"
	require.NoError(t, st.Meetings.Upsert(ctx, m))

	got, err := st.Meetings.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "City Council Regular Meeting (Revised)", got.Title)
	assert.Equal(t, "The council approved things.", got.Summary)
	assert.Equal(t, []string{"housing"}, got.Topics)
	assert.Equal(t, models.ProcessingCompleted, got.ProcessingStatus)
	assert.Equal(t, "monolithic", got.ProcessingMethod)
	require.NotNil(t, got.Participation)
	assert.Equal(t, "clerk@city.gov", got.Participation.Email)
}

func TestItemUpsertPreservesSummary(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t, "testca")
	require.NoError(t, st.Meetings.Upsert(ctx, testMeeting("testca", "m1")))

	item := models.AgendaItem{ID: "m1_i1", MeetingID: "m1", Title: "Ordinance 42", Sequence: 1}
	require.NoError(t, st.Items.UpsertBatch(ctx, []models.AgendaItem{item}))
	require.NoError(t, st.Items.SaveSummary(ctx, "m1_i1", "Rezones Elm Street.", []string{"housing"}))

	item.Title = "Ordinance 42 (amended)"
	require.NoError(t, st.Items.UpsertBatch(ctx, []models.AgendaItem{item}))

	items, err := st.Items.ForMeeting(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Ordinance 42 (amended)", items[0].Title)
	assert.Equal(t, "Rezones Elm Street.", items[0].Summary)
	assert.Equal(t, []string{"housing"}, items[0].Topics)
}

func TestMatterLifecycle(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t, "testca")

	first := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	attachments := []models.Attachment{{Name: "Bill", URL: "https://example.com/bill.pdf"}}
	matter := &models.Matter{
		ID:          "testca_abc123def4567890",
		Banana:      "testca",
		MatterFile:  "BL2026-100",
		Title:       "An ordinance about parks",
		Attachments: attachments,
		Metadata:    models.MatterMetadata{AttachmentHash: "hash1"},
		FirstSeen:   &first,
	}
	require.NoError(t, st.Matters.Insert(ctx, matter))

	got, err := st.Matters.Get(ctx, matter.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AppearanceCount)
	require.NotNil(t, got.FirstSeen)
	assert.True(t, got.FirstSeen.Equal(first))
	assert.True(t, got.LastSeen.Equal(first))

	// Second reading, same attachments: count bumps, hash untouched.
	second := first.AddDate(0, 0, 14)
	require.NoError(t, st.Matters.RecordAppearance(ctx, matter.ID, &second, attachments))

	got, err = st.Matters.Get(ctx, matter.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AppearanceCount)
	assert.True(t, got.LastSeen.Equal(second))
	assert.True(t, got.FirstSeen.Equal(first))
	assert.Equal(t, "hash1", got.Metadata.AttachmentHash)

	// Third reading with a substitute bill: attachments refresh, but the
	// recorded hash still names the set the last summary came from.
	third := second.AddDate(0, 0, 14)
	newAttachments := append(attachments, models.Attachment{Name: "Substitute", URL: "https://example.com/sub.pdf"})
	require.NoError(t, st.Matters.RecordAppearance(ctx, matter.ID, &third, newAttachments))

	got, err = st.Matters.Get(ctx, matter.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AppearanceCount)
	assert.Equal(t, "hash1", got.Metadata.AttachmentHash)
	assert.Len(t, got.Attachments, 2)

	// An attachment-less reading keeps the known set.
	fourth := third.AddDate(0, 0, 14)
	require.NoError(t, st.Matters.RecordAppearance(ctx, matter.ID, &fourth, nil))

	got, err = st.Matters.Get(ctx, matter.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.AppearanceCount)
	assert.Len(t, got.Attachments, 2)
}

func TestMatterCanonicalSummaryAndBackfill(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t, "testca")

	require.NoError(t, st.Meetings.Upsert(ctx, testMeeting("testca", "m1")))
	require.NoError(t, st.Meetings.Upsert(ctx, testMeeting("testca", "m2")))
	matter := &models.Matter{ID: "testca_1234567890abcdef", Banana: "testca", Title: "Shared matter"}
	require.NoError(t, st.Matters.Insert(ctx, matter))

	items := []models.AgendaItem{
		{ID: "m1_i1", MeetingID: "m1", Title: "First reading", Sequence: 1, MatterID: matter.ID},
		{ID: "m2_i1", MeetingID: "m2", Title: "Second reading", Sequence: 1, MatterID: matter.ID},
	}
	require.NoError(t, st.Items.UpsertBatch(ctx, items))

	require.NoError(t, st.Matters.SaveCanonicalSummary(ctx, matter.ID, "Canonical.", []string{"budget"}, "hashX"))
	updated, err := st.Items.BackfillMatterSummary(ctx, matter.ID, "Canonical.", []string{"budget"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)

	got, err := st.Matters.Get(ctx, matter.ID)
	require.NoError(t, err)
	assert.Equal(t, "Canonical.", got.CanonicalSummary)
	assert.Equal(t, "hashX", got.Metadata.AttachmentHash)

	forMatter, err := st.Items.ForMatter(ctx, matter.ID)
	require.NoError(t, err)
	require.Len(t, forMatter, 2)
	for _, item := range forMatter {
		assert.Equal(t, "Canonical.", item.Summary)
	}
}

func TestItemsForMeetingsBatch(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t, "testca")

	require.NoError(t, st.Meetings.Upsert(ctx, testMeeting("testca", "m1")))
	require.NoError(t, st.Meetings.Upsert(ctx, testMeeting("testca", "m2")))
	require.NoError(t, st.Items.UpsertBatch(ctx, []models.AgendaItem{
		{ID: "m1_i1", MeetingID: "m1", Title: "First", Sequence: 1},
		{ID: "m1_i2", MeetingID: "m1", Title: "Second", Sequence: 2},
		{ID: "m2_i1", MeetingID: "m2", Title: "Other", Sequence: 1},
	}))

	byMeeting, err := st.Items.ForMeetings(ctx, []string{"m1", "m2", "m3"})
	require.NoError(t, err)
	assert.Len(t, byMeeting["m1"], 2)
	assert.Len(t, byMeeting["m2"], 1)
	_, present := byMeeting["m3"]
	assert.False(t, present, "meetings without items get no map entry")
}

func TestCrossCityIsolation(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t, "oaklandca")
	require.NoError(t, st.Cities.Upsert(ctx, &models.City{Banana: "berkeleyca", Name: "Berkeley", State: "CA"}))

	// Same vendor file number in two cities stays two distinct matters.
	require.NoError(t, st.Matters.Insert(ctx, &models.Matter{
		ID: "oaklandca_aaaaaaaaaaaaaaaa", Banana: "oaklandca", MatterFile: "BL2026-1",
	}))
	require.NoError(t, st.Matters.Insert(ctx, &models.Matter{
		ID: "berkeleyca_aaaaaaaaaaaaaaaa", Banana: "berkeleyca", MatterFile: "BL2026-1",
	}))

	batch, err := st.Matters.GetBatch(ctx, []string{"oaklandca_aaaaaaaaaaaaaaaa", "berkeleyca_aaaaaaaaaaaaaaaa"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}

func TestMembersSponsorshipsAndVotes(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t, "testca")

	require.NoError(t, st.Meetings.Upsert(ctx, testMeeting("testca", "m1")))
	matter := &models.Matter{ID: "testca_feedfacefeedface", Banana: "testca"}
	require.NoError(t, st.Matters.Insert(ctx, matter))

	// Name variants resolve to one member.
	id1, err := st.Members.UpsertByName(ctx, "testca", "Jane  Smith")
	require.NoError(t, err)
	id2, err := st.Members.UpsertByName(ctx, "testca", "jane smith")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	require.NoError(t, st.Members.AddSponsorship(ctx, id1, matter.ID))
	require.NoError(t, st.Members.AddSponsorship(ctx, id1, matter.ID))

	vote := &models.Vote{MemberID: id1, MatterID: matter.ID, MeetingID: "m1", Vote: "aye", Sequence: 1}
	require.NoError(t, st.Members.RecordVote(ctx, vote))

	// A corrected re-ingest overwrites the prior record.
	vote.Vote = "nay"
	require.NoError(t, st.Members.RecordVote(ctx, vote))

	votes, err := st.Members.VotesForMatter(ctx, matter.ID)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, "nay", votes[0].Vote)
}

func TestMeetingSearch(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t, "testca")

	m := testMeeting("testca", "m1")
	require.NoError(t, st.Meetings.Upsert(ctx, m))
	require.NoError(t, st.Meetings.SaveSummary(ctx, "m1",
		"The council discussed bike lane expansion on Telegraph Avenue.", nil, nil, "monolithic", 1))

	results, err := st.Meetings.Search(ctx, "testca", "bike lane", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "m1", results[0].ID)

	none, err := st.Meetings.Search(ctx, "testca", "submarine", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t, "testca")

	err := st.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Meetings.Upsert(ctx, testMeeting("testca", "m1")); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = st.Meetings.Get(ctx, "m1")
	assert.True(t, store.IsNotFound(err))
}
