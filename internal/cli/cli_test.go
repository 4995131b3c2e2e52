package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/studiowebux/ballast/internal/report"
	"github.com/studiowebux/ballast/internal/types"
)

type fixture struct {
	dir      string
	config   string
	snapshot string
	hits     *int64
	url      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	return &fixture{
		dir:      dir,
		config:   filepath.Join(dir, "ballast.json"),
		snapshot: filepath.Join(dir, ".ballast_snapshot.json"),
		hits:     &hits,
		url:      server.URL,
	}
}

func (f *fixture) writeConfig(t *testing.T, method string, expectedStatus int) {
	t.Helper()
	content := fmt.Sprintf(`{
		// health check
		"endpoints": [
			{
				"name": "health",
				"url": "%s/health",
				"method": %q,
				"concurrent_requests": 2,
				"cycles": 1,
				"ramp": false,
				"expected_status": %d,
				"expected_body": {"ok": true},
			},
		],
	}`, f.url, method, expectedStatus)
	require.NoError(t, os.WriteFile(f.config, []byte(content), 0644))
}

func (f *fixture) options(t *testing.T, stdout *bytes.Buffer) RunOptions {
	return RunOptions{
		ConfigPath:   f.config,
		SnapshotPath: f.snapshot,
		Logger:       zaptest.NewLogger(t),
		Stdout:       stdout,
		Stderr:       &bytes.Buffer{},
	}
}

func readSnapshots(t *testing.T, path string) []types.Snapshot {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var snaps []types.Snapshot
	require.NoError(t, json.Unmarshal(data, &snaps))
	return snaps
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "GET", 200)

	var out bytes.Buffer
	opts := f.options(t, &out)
	opts.NoSnapshot = true

	require.NoError(t, Run(context.Background(), opts))
	assert.Contains(t, out.String(), "PASS health")
	assert.Contains(t, out.String(), "1 tests passed, 0 tests failed")
	assert.NoFileExists(t, f.snapshot)
	assert.Equal(t, int64(2), atomic.LoadInt64(f.hits))
}

func TestRun_SecondRunComparesAgainstFirst(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "GET", 200)

	var first bytes.Buffer
	opts := f.options(t, &first)
	opts.Description = "baseline"
	require.NoError(t, Run(context.Background(), opts))
	assert.Contains(t, first.String(), "(no previous snapshot)")

	snaps := readSnapshots(t, f.snapshot)
	require.Len(t, snaps, 1)
	assert.Equal(t, "baseline", snaps[0].Description)
	require.Len(t, snaps[0].Outputs, 1)
	assert.True(t, snaps[0].Outputs[0].Success)
	assert.Equal(t, types.Bool(true), snaps[0].Outputs[0].Expected.StatusCode)
	assert.Equal(t, types.Bool(true), snaps[0].Outputs[0].Expected.Body)
	assert.Nil(t, snaps[0].Outputs[0].Expected.Headers)

	var second bytes.Buffer
	require.NoError(t, Run(context.Background(), f.options(t, &second)))
	assert.NotContains(t, second.String(), "(no previous snapshot)")
	assert.Len(t, readSnapshots(t, f.snapshot), 2)
}

func TestRun_StrictExitOnFailure(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "GET", 201)

	var out bytes.Buffer
	opts := f.options(t, &out)
	require.NoError(t, Run(context.Background(), opts))
	assert.Contains(t, out.String(), "FAIL health")
	assert.Contains(t, out.String(), "expected status code 201")

	opts.Strict = true
	err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEndpointsFailed)
}

func TestRun_MissingConfig(t *testing.T) {
	f := newFixture(t)

	err := Run(context.Background(), f.options(t, &bytes.Buffer{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfiguration)
	assert.Contains(t, err.Error(), f.config)
}

func TestRun_InvalidMethodSendsNoTraffic(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "FETCH", 200)

	err := Run(context.Background(), f.options(t, &bytes.Buffer{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfiguration)
	assert.Equal(t, int64(0), atomic.LoadInt64(f.hits))
	assert.NoFileExists(t, f.snapshot)
}

func TestRun_CorruptSnapshotFailsBeforeTraffic(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "GET", 200)
	require.NoError(t, os.WriteFile(f.snapshot, []byte("{not json"), 0644))

	err := Run(context.Background(), f.options(t, &bytes.Buffer{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrPersistence)
	assert.Equal(t, int64(0), atomic.LoadInt64(f.hits))

	data, err := os.ReadFile(f.snapshot)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

func TestRun_JSONOutputAndMetrics(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "GET", 200)

	var out bytes.Buffer
	opts := f.options(t, &out)
	opts.OutputFormat = report.FormatJSON
	opts.MetricsFile = filepath.Join(f.dir, "metrics", "ballast.prom")

	require.NoError(t, Run(context.Background(), opts))

	var doc report.Document
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, 1, doc.Passed)
	require.Len(t, doc.Endpoints, 1)
	assert.Equal(t, "health", doc.Endpoints[0].Name)

	metrics, err := os.ReadFile(opts.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `ballast_endpoint_success{endpoint="health"} 1`)
}

func TestRun_UnknownOutputFormat(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "GET", 200)

	opts := f.options(t, &bytes.Buffer{})
	opts.OutputFormat = "xml"
	assert.Error(t, Run(context.Background(), opts))
	assert.Equal(t, int64(0), atomic.LoadInt64(f.hits))
}

func TestRun_SQLiteStore(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "GET", 200)

	opts := f.options(t, &bytes.Buffer{})
	opts.Store = "sqlite"
	opts.SnapshotPath = filepath.Join(f.dir, "snapshots.db")

	require.NoError(t, Run(context.Background(), opts))
	require.NoError(t, Run(context.Background(), opts))

	var out bytes.Buffer
	require.NoError(t, History(HistoryOptions{
		SnapshotPath: opts.SnapshotPath,
		Store:        "sqlite",
		OutputFormat: report.FormatJSON,
		Stdout:       &out,
	}))

	var snaps []types.Snapshot
	require.NoError(t, json.Unmarshal(out.Bytes(), &snaps))
	assert.Len(t, snaps, 2)
}

func TestHistory_Text(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "GET", 200)

	opts := f.options(t, &bytes.Buffer{})
	opts.Description = "nightly"
	require.NoError(t, Run(context.Background(), opts))

	var out bytes.Buffer
	require.NoError(t, History(HistoryOptions{SnapshotPath: f.snapshot, Stdout: &out}))
	assert.Contains(t, out.String(), "1 passed 0 failed")
	assert.Contains(t, out.String(), "nightly")

	var empty bytes.Buffer
	require.NoError(t, History(HistoryOptions{SnapshotPath: filepath.Join(f.dir, "none.json"), Stdout: &empty}))
	assert.Contains(t, empty.String(), "No snapshots recorded.")
}

func TestValidate(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "get", 200)

	var out bytes.Buffer
	require.NoError(t, Validate(f.config, &out))
	assert.Contains(t, out.String(), "1 endpoints OK")

	f.writeConfig(t, "FETCH", 200)
	err := Validate(f.config, &bytes.Buffer{})
	assert.ErrorIs(t, err, types.ErrConfiguration)
	assert.Equal(t, int64(0), atomic.LoadInt64(f.hits))
}
