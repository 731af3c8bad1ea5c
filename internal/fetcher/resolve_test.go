package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.com/data.csv"))
	assert.True(t, IsRemote("http://example.com/x"))
	assert.False(t, IsRemote("data/heatflow.xlsx"))
	assert.False(t, IsRemote("/abs/path.csv"))
	assert.False(t, IsRemote("ftp://example.com/x"))
}

func TestResolve_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.csv")
	require.NoError(t, os.WriteFile(path, []byte("lat,lon\n"), 0o644))

	r := NewResolver(nil, t.TempDir())
	got, err := r.Resolve(context.Background(), path, ".csv")
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestResolve_MissingLocalFile(t *testing.T) {
	r := NewResolver(nil, t.TempDir())
	_, err := r.Resolve(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), ".csv")
	require.Error(t, err)
}

func TestResolve_EmptySource(t *testing.T) {
	_, err := NewResolver(nil, "").Resolve(context.Background(), "", ".csv")
	require.Error(t, err)
}

func TestResolve_LocalZIP(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"plates/readme.txt": "see shp",
		"plates/bounds.shp": "shp",
		"plates/bounds.dbf": "dbf",
	})

	r := NewResolver(nil, t.TempDir())
	got, err := r.Resolve(context.Background(), zipPath, ".shp")
	require.NoError(t, err)
	assert.Equal(t, "bounds.shp", filepath.Base(got))
	_, err = os.Stat(filepath.Join(filepath.Dir(got), "bounds.dbf"))
	require.NoError(t, err, "sibling files are extracted alongside")
}

func TestResolve_ZIPWantedAsIs(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{"a.csv": "x"})
	got, err := NewResolver(nil, t.TempDir()).Resolve(context.Background(), zipPath, ".zip")
	require.NoError(t, err)
	assert.Equal(t, zipPath, got)
}

func TestResolve_RemoteCachesByETag(t *testing.T) {
	var full, notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		full.Add(1)
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("lat,lon,plate\n1,2,PA\n"))
	}))
	defer srv.Close()

	r := NewResolver(newTestFetcher(), t.TempDir())
	ctx := context.Background()

	first, err := r.Resolve(ctx, srv.URL+"/boundaries.csv", ".csv")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(first, "-boundaries.csv"))

	second, err := r.Resolve(ctx, srv.URL+"/boundaries.csv", ".csv")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), full.Load())
	assert.Equal(t, int32(1), notModified.Load())

	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Contains(t, string(data), "PA")
}

func TestResolve_RemoteFailureFallsBackToCache(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte("cached body"))
	}))
	defer srv.Close()

	r := NewResolver(newTestFetcher(), t.TempDir())
	ctx := context.Background()

	first, err := r.Resolve(ctx, srv.URL+"/m.csv", ".csv")
	require.NoError(t, err)

	fail.Store(true)
	second, err := r.Resolve(ctx, srv.URL+"/m.csv", ".csv")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolve_RemoteFailureWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewResolver(newTestFetcher(), t.TempDir()).Resolve(context.Background(), srv.URL+"/gone.csv", ".csv")
	require.Error(t, err)
}

func TestResolve_RemoteWithoutFetcher(t *testing.T) {
	_, err := NewResolver(nil, t.TempDir()).Resolve(context.Background(), "https://example.com/x.csv", ".csv")
	require.Error(t, err)
}
