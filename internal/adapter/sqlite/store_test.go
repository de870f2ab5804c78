package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/couchcryptid/pz-stationxml/internal/domain"
	"github.com/couchcryptid/pz-stationxml/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) (*Store, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	store, err := NewStore(filepath.Join(t.TempDir(), "data", "inventory.db"), metrics)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store, metrics
}

func testRecord(sta, cha, source string) domain.ChannelRecord {
	lat := 39.5
	return domain.ChannelRecord{
		Source:      source,
		Network:     "KO",
		Station:     sta,
		Channel:     cha,
		Latitude:    &lat,
		Orientation: domain.Orientation{Azimuth: 0, Dip: 90},
		Response: domain.Response{
			Stage: domain.PolesZerosStage{
				Sequence: 1,
				Poles:    []domain.Coefficient{{Real: -0.037, Imag: 0.037}},
				Zeros:    []domain.Coefficient{},
			},
		},
		Defaults:    []string{domain.DefaultDepth},
		ProcessedAt: time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewStore_AppliesMigrations(t *testing.T) {
	store, _ := setupTestStore(t)

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, store.CheckReadiness(context.Background()))
}

func TestNewStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.db")
	ctx := context.Background()

	first, err := NewStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, first.LoadBatch(ctx, []domain.ChannelRecord{testRecord("ALTN", "BHZ", "a.PZ")}))
	require.NoError(t, first.Close())

	second, err := NewStore(path, nil)
	require.NoError(t, err)
	defer second.Close()

	recs, err := second.Records(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "KO.ALTN..BHZ", recs[0].SEEDID())
}

func TestLoadBatch_RoundTrip(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	in := []domain.ChannelRecord{
		testRecord("ALTN", "BHZ", "a.PZ"),
		testRecord("ALTN", "BHE", "b.PZ"),
		testRecord("BALB", "BHZ", "c.PZ"),
	}
	require.NoError(t, store.LoadBatch(ctx, in))

	out, err := store.Records(ctx)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i := range in {
		assert.Equal(t, in[i].SEEDID(), out[i].SEEDID())
		assert.Equal(t, in[i].Response, out[i].Response)
		assert.Equal(t, in[i].Defaults, out[i].Defaults)
		assert.True(t, in[i].ProcessedAt.Equal(out[i].ProcessedAt))
	}
}

func TestLoadBatch_FirstRecordWins(t *testing.T) {
	store, metrics := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.LoadBatch(ctx, []domain.ChannelRecord{testRecord("ALTN", "BHZ", "first.PZ")}))
	require.NoError(t, store.LoadBatch(ctx, []domain.ChannelRecord{
		testRecord("ALTN", "BHZ", "second.PZ"),
		testRecord("ALTN", "BHN", "third.PZ"),
	}))

	out, err := store.Records(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "first.PZ", out[0].Source)
	assert.Equal(t, "third.PZ", out[1].Source)

	assert.Equal(t, int64(1), store.Skipped())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.InventorySkipped), 0)
}

func TestLoadBatch_Empty(t *testing.T) {
	store, _ := setupTestStore(t)
	require.NoError(t, store.LoadBatch(context.Background(), nil))
}

func TestLoadBatch_CancelledContext(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.LoadBatch(ctx, []domain.ChannelRecord{testRecord("ALTN", "BHZ", "a.PZ")})
	require.Error(t, err)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMigrate_SkipsAppliedAndUnnumbered(t *testing.T) {
	store, _ := setupTestStore(t)

	fsys := fstest.MapFS{
		"001_channels.up.sql": {Data: []byte("THIS WOULD FAIL IF RUN AGAIN")},
		"002_extra.up.sql":    {Data: []byte("CREATE TABLE extra (id INTEGER PRIMARY KEY);")},
		"002_extra.down.sql":  {Data: []byte("DROP TABLE extra;")},
		"readme.up.sql":       {Data: []byte("nonsense")},
	}
	require.NoError(t, store.migrate(fsys))

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)

	_, err := store.db.Exec("INSERT INTO extra (id) VALUES (1)")
	require.NoError(t, err)
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	store, _ := setupTestStore(t)

	fsys := fstest.MapFS{
		"003_broken.up.sql": {Data: []byte("CREATE TABLE broken (;")},
	}
	require.Error(t, store.migrate(fsys))

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)
}

func TestMigrate_OrdersByVersionNumber(t *testing.T) {
	store, _ := setupTestStore(t)

	fsys := fstest.MapFS{
		"10_fill.up.sql":    {Data: []byte("INSERT INTO notes (id) VALUES (1);")},
		"9_create.up.sql":   {Data: []byte("CREATE TABLE notes (id INTEGER PRIMARY KEY);")},
		"9_create.down.sql": {Data: []byte("DROP TABLE notes;")},
	}
	require.NoError(t, store.migrate(fsys))

	var version, n int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 10, version)
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM notes").Scan(&n))
	assert.Equal(t, 1, n)
}
