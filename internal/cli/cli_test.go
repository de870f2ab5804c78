package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/pz-stationxml/internal/adapter/sqlite"
	"github.com/couchcryptid/pz-stationxml/internal/config"
	"github.com/couchcryptid/pz-stationxml/internal/observability"
)

var (
	fixtureXX = filepath.Join("..", "domain", "testdata", "SAC_PZs_XX_ABC_BHZ.PZ")
	fixtureKO = filepath.Join("..", "domain", "testdata", "SAC_PZs_KO_ALTN_BHE.PZ")
)

const badPZ = "* CHANNEL   (KCMPNM): BHZ\nPOLES 3\n1 2\nCONSTANT 1\n"

// execute runs the root command with fresh flag values and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	convertOutput, convertStrict, convertDB, convertMetadata = "-", false, "", ""
	logLevel, logFormat = "warn", "text"

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeBad(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "SAC_PZs_BAD")
	require.NoError(t, os.WriteFile(path, []byte(badPZ), 0o600))
	return path
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "convert")
	assert.Contains(t, names, "validate")
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "version")
}

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "pz2sxml version test-version-1.0.0")
}

func TestConvertCmd_Stdout(t *testing.T) {
	stdout, stderr, err := execute(t, "convert", fixtureXX, fixtureKO)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stdout, "<?xml"))
	assert.Contains(t, stdout, `<Network code="KO"`)
	assert.Contains(t, stdout, `<Network code="XX"`)
	assert.Contains(t, stdout, `<Station code="ABC"`)
	assert.Contains(t, stdout, "<Source>KOERI</Source>")
	assert.Contains(t, stdout, "<Name>Test Station, Kocaeli</Name>")
	assert.Contains(t, stderr, "converted 2 of 2 files (0 failed, 0 duplicate channels skipped)")
}

func TestConvertCmd_RequiresArgs(t *testing.T) {
	_, _, err := execute(t, "convert")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestConvertCmd_SkipsBadFiles(t *testing.T) {
	bad := writeBad(t)

	stdout, stderr, err := execute(t, "convert", fixtureXX, bad)
	require.NoError(t, err)
	assert.Contains(t, stdout, `<Station code="ABC"`)
	assert.Contains(t, stderr, "converted 1 of 2 files (1 failed")
	assert.Contains(t, stderr, "SAC_PZs_BAD")
}

func TestConvertCmd_Strict(t *testing.T) {
	bad := writeBad(t)

	stdout, _, err := execute(t, "convert", "--strict", fixtureXX, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAC_PZs_BAD: parse poles")
	assert.Empty(t, stdout)
}

func TestConvertCmd_NothingConverted(t *testing.T) {
	_, _, err := execute(t, "convert", writeBad(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files converted")
}

func TestConvertCmd_NoGlobMatch(t *testing.T) {
	_, _, err := execute(t, "convert", filepath.Join(t.TempDir(), "*.PZ"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files match")
}

func TestConvertCmd_OutputFileAndMetadata(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "inventory.xml")
	meta := filepath.Join(dir, "meta.toml")
	require.NoError(t, os.WriteFile(meta, []byte("source = \"TEST\"\n[networks]\nKO = \"Kandilli\"\n"), 0o600))

	stdout, _, err := execute(t, "convert", "-o", out, "--metadata", meta, fixtureKO)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<Source>TEST</Source>")
	assert.Contains(t, string(data), "<Description>Kandilli</Description>")
}

func TestConvertCmd_DatabaseAccumulates(t *testing.T) {
	db := filepath.Join(t.TempDir(), "inventory.db")

	_, _, err := execute(t, "convert", "--db", db, fixtureXX)
	require.NoError(t, err)

	stdout, _, err := execute(t, "convert", "--db", db, fixtureKO)
	require.NoError(t, err)
	assert.Contains(t, stdout, `<Network code="XX"`, "earlier run comes from the database")
	assert.Contains(t, stdout, `<Network code="KO"`)
}

func TestValidateCmd(t *testing.T) {
	bad := writeBad(t)

	stdout, _, err := execute(t, "validate", fixtureKO, fixtureXX, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 files failed")

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, stdout, "OK   SAC_PZs_KO_ALTN_BHE.PZ KO.ALTN.00.BHE\n")
	assert.Contains(t, stdout, "OK   SAC_PZs_XX_ABC_BHZ.PZ XX.ABC..BHZ (defaults: orientation, depth)")
	assert.Contains(t, stdout, "FAIL SAC_PZs_BAD: parse poles at line 4")
}

func TestValidateCmd_AllGood(t *testing.T) {
	_, _, err := execute(t, "validate", fixtureKO)
	require.NoError(t, err)
}

func TestServe_WatchToDatabase(t *testing.T) {
	original := newMetrics
	newMetrics = observability.NewMetricsForTesting
	defer func() { newMetrics = original }()

	watchDir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "inventory.db")
	fixture, err := os.ReadFile(fixtureXX)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(watchDir, "SAC_PZs_XX_ABC_BHZ"), fixture, 0o600))

	cfg := &config.Config{
		HTTPAddr:           "127.0.0.1:0",
		ShutdownTimeout:    2 * time.Second,
		BatchSize:          10,
		BatchFlushInterval: 50 * time.Millisecond,
		Source:             config.SourceWatch,
		WatchDir:           watchDir,
		WatchPattern:       "SAC_PZs_*",
		InventoryDB:        dbPath,
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(ctx, cfg, observability.NewLoggerTo(&bytes.Buffer{}, "error", "text"))
	}()

	require.Eventually(t, func() bool {
		store, err := sqlite.NewStore(dbPath, nil)
		if err != nil {
			return false
		}
		defer store.Close()
		n, err := store.Count(context.Background())
		return err == nil && n == 1
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
