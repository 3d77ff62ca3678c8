package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatterIDDeterministic(t *testing.T) {
	first, err := MatterID("nashvilleTN", "BL2025-1098", "")
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		again, err := MatterID("nashvilleTN", "BL2025-1098", "")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestMatterIDShape(t *testing.T) {
	id, err := MatterID("paloaltoCA", "ORD-42", "12345")
	require.NoError(t, err)
	assert.True(t, ValidMatterID(id), "id %q should match canonical shape", id)
	assert.True(t, len(id) == len("paloaltoCA")+1+16)

	banana, err := BananaFromMatterID(id)
	require.NoError(t, err)
	assert.Equal(t, "paloaltoCA", banana)
}

func TestMatterIDCrossCityUnique(t *testing.T) {
	a, err := MatterID("nashvilleTN", "BL2025-1", "")
	require.NoError(t, err)
	b, err := MatterID("memphisTN", "BL2025-1", "")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestMatterIDIdentifierPrecedence(t *testing.T) {
	fileOnly, err := MatterID("paloaltoCA", "BL-1", "")
	require.NoError(t, err)
	both, err := MatterID("paloaltoCA", "BL-1", "backend-9")
	require.NoError(t, err)
	vendorOnly, err := MatterID("paloaltoCA", "", "backend-9")
	require.NoError(t, err)

	// Different identifier combinations are distinct keys.
	assert.NotEqual(t, fileOnly, both)
	assert.NotEqual(t, fileOnly, vendorOnly)
}

func TestMatterIDRequiresIdentifier(t *testing.T) {
	_, err := MatterID("paloaltoCA", "", "")
	assert.ErrorIs(t, err, ErrNoIdentifier)
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"FIRST READING: An ordinance amending Title 17", "an ordinance amending title 17"},
		{"Reintroduced:  SECOND READING: An   ordinance", "an ordinance"},
		{"  An Ordinance\tWith   Tabs ", "an ordinance with tabs"},
		{"Public Comment", "public comment"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTitle(tt.in), "input %q", tt.in)
	}
}

func TestMatterIDFromTitle(t *testing.T) {
	id, err := MatterIDFromTitle("nashvilleTN", "FIRST READING: An ordinance amending Title 17 regarding sidewalks")
	require.NoError(t, err)
	assert.True(t, ValidMatterID(id))

	// Stripping the prefix yields the same matter as the bare title.
	bare, err := MatterIDFromTitle("nashvilleTN", "An ordinance amending Title 17 regarding sidewalks")
	require.NoError(t, err)
	assert.Equal(t, id, bare)
}

func TestMatterIDFromTitleRejectsGeneric(t *testing.T) {
	_, err := MatterIDFromTitle("nashvilleTN", "Public Comment")
	assert.ErrorIs(t, err, ErrNoIdentifier)

	_, err = MatterIDFromTitle("nashvilleTN", "Short title")
	assert.ErrorIs(t, err, ErrNoIdentifier)
}

func TestMeetingIDDeterministic(t *testing.T) {
	date := time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)
	first := MeetingID("paloaltoCA", "vendor-77", &date, "City Council")
	again := MeetingID("paloaltoCA", "vendor-77", &date, "City Council")
	assert.Equal(t, first, again)

	// Null dates are permitted and stable.
	noDate := MeetingID("paloaltoCA", "vendor-77", nil, "City Council")
	assert.Equal(t, noDate, MeetingID("paloaltoCA", "vendor-77", nil, "City Council"))
	assert.NotEqual(t, first, noDate)
}

func TestMeetingIDShape(t *testing.T) {
	id := MeetingID("paloaltoCA", "v1", nil, "Council")
	assert.Len(t, id, len("paloaltoCA")+1+8)
}

func TestValidMatterID(t *testing.T) {
	assert.True(t, ValidMatterID("paloaltoCA_0123456789abcdef"))
	assert.False(t, ValidMatterID("paloaltoCA_0123456789ABCDEF")) // uppercase hex
	assert.False(t, ValidMatterID("paloaltoCA_0123"))             // short hash
	assert.False(t, ValidMatterID("_0123456789abcdef"))           // empty banana
	assert.False(t, ValidMatterID("paloaltoCA0123456789abcdef"))  // no separator
}

func TestBananaFromMatterIDMalformed(t *testing.T) {
	_, err := BananaFromMatterID("nounderscore")
	assert.Error(t, err)
}

func TestNormalizeMemberName(t *testing.T) {
	assert.Equal(t, "jane q. smith", NormalizeMemberName("  Jane   Q. Smith "))
	assert.Equal(t, MemberID("paloaltoCA", "jane q. smith"), MemberID("paloaltoCA", "jane q. smith"))
	assert.NotEqual(t, MemberID("paloaltoCA", "jane q. smith"), MemberID("memphisTN", "jane q. smith"))
}
