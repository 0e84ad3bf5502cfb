package embeddings

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlatformArchive(t *testing.T) {
	tests := []struct {
		goos, goarch, want string
	}{
		{"linux", "amd64", "linux-x64"},
		{"linux", "arm64", "linux-aarch64"},
		{"darwin", "amd64", "osx-x86_64"},
		{"darwin", "arm64", "osx-arm64"},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			got, err := getPlatformArchive(tt.goos, tt.goarch)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := getPlatformArchive("windows", "amd64")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestGetLibraryName(t *testing.T) {
	assert.Equal(t, "libonnxruntime.so", getLibraryName("linux"))
	assert.Equal(t, "libonnxruntime.dylib", getLibraryName("darwin"))
}

func runtimeArchive(t *testing.T, prefix string, includeLib bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	add := func(hdr *tar.Header, body []byte) {
		hdr.Size = int64(len(body))
		require.NoError(t, tw.WriteHeader(hdr))
		if len(body) > 0 {
			_, err := tw.Write(body)
			require.NoError(t, err)
		}
	}
	add(&tar.Header{Name: prefix, Typeflag: tar.TypeDir, Mode: 0o755}, nil)
	if includeLib {
		add(&tar.Header{Name: prefix + "libonnxruntime.so.1.16.3", Typeflag: tar.TypeReg, Mode: 0o644}, []byte("ELF"))
		add(&tar.Header{Name: prefix + "libonnxruntime.so", Typeflag: tar.TypeSymlink, Linkname: "libonnxruntime.so.1.16.3"}, nil)
	}
	add(&tar.Header{Name: "./onnxruntime-linux-x64-1.16.3/README.md", Typeflag: tar.TypeReg, Mode: 0o644}, []byte("docs"))

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestRuntimeInstaller_Ensure(t *testing.T) {
	archive := runtimeArchive(t, "onnxruntime-linux-x64-1.16.3/lib/", true)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	dir := t.TempDir()
	inst := &RuntimeInstaller{
		Version: "1.16.3",
		Dir:     dir,
		URL:     srv.URL,
		Client:  srv.Client(),
		GOOS:    "linux",
		GOARCH:  "amd64",
	}

	path, err := inst.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "libonnxruntime.so"), path)

	data, err := os.ReadFile(filepath.Join(dir, "libonnxruntime.so.1.16.3"))
	require.NoError(t, err)
	assert.Equal(t, "ELF", string(data))
	_, err = os.Stat(filepath.Join(dir, "README.md"))
	assert.True(t, os.IsNotExist(err))

	_, err = inst.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second Ensure reuses the install")
}

func TestRuntimeInstaller_MissingLibrary(t *testing.T) {
	archive := runtimeArchive(t, "onnxruntime-linux-x64-1.16.3/lib/", false)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	inst := &RuntimeInstaller{Version: "1.16.3", Dir: t.TempDir(), URL: srv.URL, GOOS: "linux", GOARCH: "amd64"}
	err := inst.Install(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in archive")
}

func TestRuntimeInstaller_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	inst := &RuntimeInstaller{Version: "1.16.3", Dir: t.TempDir(), URL: srv.URL, GOOS: "linux", GOARCH: "amd64"}
	err := inst.Install(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestGetONNXLibraryPath_Env(t *testing.T) {
	t.Setenv("ONNX_PATH", "/opt/onnx/libonnxruntime.so")
	assert.Equal(t, "/opt/onnx/libonnxruntime.so", GetONNXLibraryPath())
}
