package census

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "census.db")
	store, err := Open(dbPath)
	require.NoError(t, err, "open census store")
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInsertGeneratesIDAndTimestamp(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	m := &Measurement{
		ImagePath:     "/photos/oak_017.jpg",
		Species:       "Oak",
		PixelDiameter: 450,
		DBHCm:         45,
		GirthCm:       141.4,
		HeightM:       392.3,
		CanopyM:       67.8,
	}
	require.NoError(t, store.Insert(m))

	_, err := uuid.Parse(m.ID)
	assert.NoError(t, err, "generated ID should be a UUID")
	assert.Greater(t, m.CreatedAt, int64(0), "timestamp should be populated")
}

func TestInsertRoundTrip(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	want := &Measurement{
		ID:            "fixed-id",
		ImagePath:     "/photos/pine_002.jpg",
		Species:       "Pine",
		PixelDiameter: 312.5,
		DBHCm:         31.3,
		GirthCm:       98.2,
		HeightM:       210.4,
		CanopyM:       43.1,
		CreatedAt:     1234567890,
	}
	require.NoError(t, store.Insert(want))

	got, err := store.ListRecent(1)
	require.NoError(t, err)
	require.Len(t, got, 1)

	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("measurement round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestListRecentOrdersNewestFirst(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	for _, m := range []*Measurement{
		{ID: "oldest", Species: "Oak", CreatedAt: 100},
		{ID: "newest", Species: "Oak", CreatedAt: 300},
		{ID: "middle", Species: "Oak", CreatedAt: 200},
	} {
		require.NoError(t, store.Insert(m))
	}

	got, err := store.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "newest", got[0].ID)
	assert.Equal(t, "middle", got[1].ID)
	assert.Equal(t, "oldest", got[2].ID)
}

func TestListRecentClampsLimit(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Insert(&Measurement{Species: "Oak"}))
	}

	t.Run("NonPositiveUsesDefault", func(t *testing.T) {
		got, err := store.ListRecent(0)
		require.NoError(t, err)
		assert.Len(t, got, 3)

		got, err = store.ListRecent(-7)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("OversizedIsCapped", func(t *testing.T) {
		got, err := store.ListRecent(MaxListLimit + 1)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("SmallLimitHonored", func(t *testing.T) {
		got, err := store.ListRecent(2)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestSpeciesStats(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	for _, m := range []*Measurement{
		{Species: "Oak", DBHCm: 30},
		{Species: "Oak", DBHCm: 10},
		{Species: "Oak", DBHCm: 40},
		{Species: "Oak", DBHCm: 20},
		{Species: "Pine", DBHCm: 5},
	} {
		require.NoError(t, store.Insert(m))
	}

	summaries, err := store.SpeciesStats()
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	oak := summaries[0]
	assert.Equal(t, "Oak", oak.Species)
	assert.Equal(t, 4, oak.Count)
	assert.Equal(t, 25.0, oak.MeanDBH)
	assert.Equal(t, 10.0, oak.MinDBH)
	assert.Equal(t, 40.0, oak.MaxDBH)
	assert.Equal(t, 20.0, oak.DBHP50)
	assert.Equal(t, 40.0, oak.DBHP85)
	assert.Equal(t, 40.0, oak.DBHP95)

	pine := summaries[1]
	assert.Equal(t, "Pine", pine.Species)
	assert.Equal(t, 1, pine.Count)
	assert.Equal(t, 5.0, pine.MeanDBH)
	assert.Equal(t, 5.0, pine.DBHP50)
	assert.Equal(t, 5.0, pine.DBHP95)
}

func TestSpeciesStatsEmpty(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	summaries, err := store.SpeciesStats()
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestNewStoreWrapsExistingHandle(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "census.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)

	store := NewStore(db)
	defer store.Close()

	require.NoError(t, store.Insert(&Measurement{Species: "Maple", DBHCm: 12.5}))

	got, err := store.ListRecent(1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Maple", got[0].Species)
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "census.db")

	first, err := Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, first.Insert(&Measurement{ID: "persisted", Species: "Oak"}))
	require.NoError(t, first.Close())

	second, err := Open(dbPath)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "persisted", got[0].ID)
}
