package setup

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/moclojer/chrondb/errors"
)

// Version is the bindings version. A pre-release suffix routes downloads
// to the "latest" release channel instead of a tagged release.
const Version = "0.1.0-dev"

// Environment variables recognized by the provisioner.
const (
	// EnvLibDir overrides the library install/search directory.
	EnvLibDir = "CHRONDB_LIB_DIR"
	// EnvNoDownload disables auto-provisioning. With it set, a missing
	// library surfaces at load time rather than triggering a download.
	EnvNoDownload = "CHRONDB_NO_DOWNLOAD"
)

var ensureOnce = sync.OnceValue(ensure)

// EnsureInstalled makes sure the native library is present, downloading
// it when absent. The first outcome is cached for the process lifetime:
// later calls replay it without touching disk or network again.
func EnsureInstalled() error {
	return ensureOnce()
}

func ensure() error {
	if os.Getenv(EnvNoDownload) != "" {
		return nil
	}
	if _, ok := FindLibrary(); ok {
		return nil
	}
	return downloadLibrary()
}

// LibName returns the well-known file name of the native library for the
// current OS.
func LibName() string {
	switch runtime.GOOS {
	case "darwin":
		return "libchrondb.dylib"
	case "windows":
		return "chrondb.dll"
	default:
		return "libchrondb.so"
	}
}

// LibraryDir returns the install directory: $CHRONDB_LIB_DIR when set,
// otherwise ~/.chrondb/lib. The second result is false when neither can
// be determined.
func LibraryDir() (string, bool) {
	if dir := os.Getenv(EnvLibDir); dir != "" {
		return dir, true
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(home, ".chrondb", "lib"), true
}

// FindLibrary returns the path of the installed library, checking the
// override directory first and then the user-scoped install directory.
func FindLibrary() (string, bool) {
	name := LibName()

	if dir := os.Getenv(EnvLibDir); dir != "" {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p, true
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".chrondb", "lib", name)
		if fileExists(p) {
			return p, true
		}
	}

	return "", false
}

// platformTag maps (GOOS, GOARCH) to the release artifact tag. The second
// result is false when no prebuilt artifact exists for the platform.
func platformTag() (string, bool) {
	switch runtime.GOOS + "/" + runtime.GOARCH {
	case "linux/amd64":
		return "linux-x86_64", true
	case "linux/arm64":
		return "linux-aarch64", true
	case "darwin/amd64":
		return "macos-x86_64", true
	case "darwin/arm64":
		return "macos-aarch64", true
	}
	return "", false
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func downloadLibrary() error {
	platform, ok := platformTag()
	if !ok {
		return errors.SetupFailed("no prebuilt library available for this platform", nil)
	}

	dir, ok := LibraryDir()
	if !ok {
		return errors.SetupFailed("cannot determine home directory", nil)
	}

	url, err := downloadURL(Version, platform)
	if err != nil {
		return err
	}

	log := Logger()
	log.Info("native library not found, downloading",
		zap.String("url", url),
		zap.String("dir", dir))

	if err := installFromURL(url, dir); err != nil {
		return err
	}

	log.Info("native library installed", zap.String("dir", dir))
	return nil
}
