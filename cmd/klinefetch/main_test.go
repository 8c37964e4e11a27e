package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"klinefetch/internal/tools"
	"klinefetch/pkg/bybit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	jan1 = int64(1704067200000)
	jan2 = int64(1704153600000)
)

// fakeBybit serves two daily candles, newest first, as a single short page.
func fakeBybit(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, bybit.KlinePath, r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		fmt.Fprintf(w, `{"retCode":0,"retMsg":"OK","result":{"category":"spot","symbol":"BTCUSDT","list":[
			["%d","101","110","95","105","12.5","1300"],
			["%d","100","108","90","101","10","1000"]]}}`, jan2, jan1)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := fmt.Sprintf(`
bybit:
  rest:
    base_url: %s
    timeout: 2s
    rate_limit: 0
fetch:
  pace_delay: 0s
log:
  level: error
`, baseURL)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// go test -v --run TestRunWritesEnvelope
func TestRunWritesEnvelope(t *testing.T) {
	srv, calls := fakeBybit(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{
		"--config", writeConfig(t, srv.URL),
		"--symbol", "BTCUSDT",
		"--interval", "D",
		"--start", "2024-01-01",
		"--end", "2024-1-3",
	}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	assert.EqualValues(t, 1, calls.Load())

	var resp tools.OHLCVResponse
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "BTCUSDT", resp.Symbol)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, jan1, resp.Data[0].Timestamp)
	assert.Equal(t, jan2, resp.Data[1].Timestamp)
	require.NotNil(t, resp.Data[1].Close)
	assert.Equal(t, 105.0, *resp.Data[1].Close)
}

func TestRunFailedFetchExitsOne(t *testing.T) {
	srv, calls := fakeBybit(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{"--config", writeConfig(t, srv.URL), "--symbol", "BTCUSDT", "--interval", "7"}, &stdout, &stderr)
	assert.Equal(t, exitFailed, code)
	assert.Zero(t, calls.Load())

	var resp tools.OHLCVResponse
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestRunBadConfigExitsTwo(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, &stdout, &stderr)
	assert.Equal(t, exitUsage, code)
	assert.Empty(t, stdout.String())
	assert.NotEmpty(t, stderr.String())

	code = run([]string{"--no-such-flag"}, &stdout, &stderr)
	assert.Equal(t, exitUsage, code)
}

func TestRunTracingFlushesToStderr(t *testing.T) {
	srv, _ := fakeBybit(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{
		"--config", writeConfig(t, srv.URL),
		"--symbol", "BTCUSDT",
		"--start", "2024-01-01",
		"--end", "2024-01-03",
		"--tracing.enabled",
	}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stderr.String(), "history.Collect")
	assert.NotContains(t, stdout.String(), "history.Collect")
}
