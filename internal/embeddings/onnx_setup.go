package embeddings

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultONNXRuntimeVersion is the onnxruntime release matching the
// onnxruntime_go binding in go.mod.
const DefaultONNXRuntimeVersion = "1.16.3"

// ErrUnsupportedPlatform indicates the current OS/arch has no prebuilt
// onnxruntime release.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

const onnxReleaseURLTemplate = "https://github.com/microsoft/onnxruntime/releases/download/v%s/onnxruntime-%s-%s.tgz"

var platformArchMap = map[string]map[string]string{
	"linux": {
		"amd64": "linux-x64",
		"arm64": "linux-aarch64",
	},
	"darwin": {
		"amd64": "osx-x86_64",
		"arm64": "osx-arm64",
	},
}

func getPlatformArchive(goos, goarch string) (string, error) {
	if arch, ok := platformArchMap[goos][goarch]; ok {
		return arch, nil
	}
	return "", fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, goos, goarch)
}

func getLibraryName(goos string) string {
	if goos == "darwin" {
		return "libonnxruntime.dylib"
	}
	return "libonnxruntime.so"
}

// DefaultRuntimeDir is where RuntimeInstaller places the library when no
// directory is configured.
func DefaultRuntimeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "ragcore", "lib")
}

// GetONNXLibraryPath returns the onnxruntime library to load: ONNX_PATH if
// set, otherwise the managed install if present, otherwise "".
func GetONNXLibraryPath() string {
	if envPath := os.Getenv("ONNX_PATH"); envPath != "" {
		return envPath
	}
	managed := filepath.Join(DefaultRuntimeDir(), getLibraryName(runtime.GOOS))
	if _, err := os.Stat(managed); err == nil {
		return managed
	}
	return ""
}

// RuntimeInstaller downloads and unpacks an onnxruntime release.
type RuntimeInstaller struct {
	Version string
	Dir     string
	// URL overrides the release download location.
	URL    string
	Client *http.Client
	GOOS   string
	GOARCH string
}

// NewRuntimeInstaller returns an installer for the current platform using
// the default version and directory.
func NewRuntimeInstaller() *RuntimeInstaller {
	return &RuntimeInstaller{
		Version: DefaultONNXRuntimeVersion,
		Dir:     DefaultRuntimeDir(),
		Client:  http.DefaultClient,
		GOOS:    runtime.GOOS,
		GOARCH:  runtime.GOARCH,
	}
}

// LibraryPath is the path the main library is installed to.
func (i *RuntimeInstaller) LibraryPath() string {
	return filepath.Join(i.Dir, getLibraryName(i.GOOS))
}

// Ensure installs the runtime unless the library is already present and
// returns its path.
func (i *RuntimeInstaller) Ensure(ctx context.Context) (string, error) {
	path := i.LibraryPath()
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := i.Install(ctx); err != nil {
		return "", err
	}
	return path, nil
}

// Install downloads the release archive and extracts its lib/ directory.
func (i *RuntimeInstaller) Install(ctx context.Context) error {
	platform, err := getPlatformArchive(i.GOOS, i.GOARCH)
	if err != nil {
		return err
	}
	url := i.URL
	if url == "" {
		url = fmt.Sprintf(onnxReleaseURLTemplate, i.Version, platform, i.Version)
	}
	if err := os.MkdirAll(i.Dir, 0o700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	client := i.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading onnxruntime: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	prefix := fmt.Sprintf("onnxruntime-%s-%s/lib/", platform, i.Version)
	if err := extractLibraries(resp.Body, i.Dir, prefix, getLibraryName(i.GOOS)); err != nil {
		return fmt.Errorf("extracting archive: %w", err)
	}
	return nil
}

// extractLibraries copies every file under prefix into destDir, flattening
// paths. Symlinks are recreated. Fails if libName was not among them.
func extractLibraries(r io.Reader, destDir, prefix, libName string) error {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	found := false
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar: %w", err)
		}

		name := strings.TrimPrefix(header.Name, "./")
		if !strings.HasPrefix(name, prefix) || header.Typeflag == tar.TypeDir {
			continue
		}

		filename := filepath.Base(name)
		destPath := filepath.Join(destDir, filename)
		isLib := filename == libName || strings.HasPrefix(filename, libName+".")

		if header.Typeflag == tar.TypeSymlink {
			_ = os.Remove(destPath)
			if err := os.Symlink(header.Linkname, destPath); err == nil && isLib {
				found = true
			}
			continue
		}

		if err := writeFile(destPath, tr); err != nil {
			return err
		}
		if isLib {
			found = true
		}
	}

	if !found {
		return fmt.Errorf("library %s not found in archive", libName)
	}
	return nil
}

func writeFile(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
