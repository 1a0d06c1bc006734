package refresh

import (
	"archive/tar"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, members map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func writeTarGz(t *testing.T, path string, members map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "geo_files/", Typeflag: tar.TypeDir, Mode: 0o755}))
	for name, body := range members {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(body)),
		}))
		_, err := tw.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

func members(files Files) map[string][]byte {
	return map[string][]byte{
		RangesFile:  files.Ranges,
		CitiesFile:  files.Cities,
		"README.txt": []byte("ignored"),
	}
}

func TestOpenArchiveZip(t *testing.T) {
	want := testFiles(t)
	path := filepath.Join(t.TempDir(), "geo_files.zip")
	writeZip(t, path, members(want))

	got, err := OpenArchive(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOpenArchiveTarGz(t *testing.T) {
	want := testFiles(t)
	m := map[string][]byte{
		"geo_files/" + RangesFile: want.Ranges,
		"geo_files/" + CitiesFile: want.Cities,
	}
	path := filepath.Join(t.TempDir(), "geo_files.TGZ")
	writeTarGz(t, path, m)

	got, err := OpenArchive(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOpenArchiveMissingMember(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo_files.zip")
	writeZip(t, path, map[string][]byte{RangesFile: []byte("")})

	_, err := OpenArchive(path)
	assert.ErrorIs(t, err, ErrMissingMember)
	assert.ErrorContains(t, err, CitiesFile)
}

func TestOpenArchiveUnsupported(t *testing.T) {
	_, err := OpenArchive("geo_files.rar")
	assert.ErrorContains(t, err, "unsupported archive")
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/geo_files.zip" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("PK-not-really"))
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "out.zip")
	n, err := Download(context.Background(), srv.Client(), srv.URL+"/geo_files.zip", dst)
	require.NoError(t, err)
	assert.Equal(t, int64(13), n)

	body, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "PK-not-really", string(body))

	_, err = Download(context.Background(), srv.Client(), srv.URL+"/missing", dst)
	assert.ErrorContains(t, err, "404")
}

func TestLoadFromURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo_files.zip")
	writeZip(t, path, members(testFiles(t)))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, path)
	}))
	defer srv.Close()

	recs, err := Load(context.Background(), "test-run", Source{URL: srv.URL + "/files/geo_files.zip"})
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	_, err = Load(context.Background(), "test-run", Source{})
	assert.Error(t, err)
}
