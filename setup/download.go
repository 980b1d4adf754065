package setup

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/coreos/go-semver/semver"
	"github.com/klauspost/compress/gzip"

	"github.com/moclojer/chrondb/errors"
)

const releaseBase = "https://github.com/moclojer/chrondb/releases/download"

// downloadTimeout bounds the whole fetch. Release archives are tens of
// megabytes; slow links still finish well inside this.
const downloadTimeout = 5 * time.Minute

// downloadURL builds the release archive URL for a bindings version and a
// platform tag. Pre-release versions download from the rolling "latest"
// release; released versions from their own tag.
func downloadURL(version, platform string) (string, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return "", errors.SetupFailed(fmt.Sprintf("invalid bindings version %q", version), err)
	}

	tag, label := "v"+version, version
	if v.PreRelease != "" {
		tag, label = "latest", "latest"
	}

	return fmt.Sprintf("%s/%s/libchrondb-%s-%s.tar.gz", releaseBase, tag, label, platform), nil
}

// installFromURL fetches the tar.gz archive at url and installs its lib/*
// and include/* entries flatly into destDir. Extraction goes through a
// private temporary subdirectory so a failed download never leaves a
// half-written library where FindLibrary would see it.
func installFromURL(url string, destDir string) error {
	ctx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.New(errors.PhaseSetup, errors.KindSetupFailed).
			Path("download").
			Detail("build request for %s", url).
			Cause(err).
			Build()
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.New(errors.PhaseSetup, errors.KindSetupFailed).
			Path("download").
			Detail("fetch %s", url).
			Cause(err).
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New(errors.PhaseSetup, errors.KindSetupFailed).
			Path("download").
			Detail("fetch %s: %s", url, resp.Status).
			Build()
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return errors.SetupFailed("create library directory", err)
	}

	tmpDir, err := os.MkdirTemp(destDir, ".tmp-extract-*")
	if err != nil {
		return errors.SetupFailed("create temporary extraction directory", err)
	}
	defer os.RemoveAll(tmpDir) // best effort

	if err := extractTarGz(resp.Body, tmpDir); err != nil {
		return err
	}

	if err := flattenInstall(tmpDir, destDir); err != nil {
		return err
	}

	libPath := filepath.Join(destDir, LibName())
	if !fileExists(libPath) {
		return errors.SetupFailed(fmt.Sprintf("library %s was not found after extraction", LibName()), nil)
	}

	return nil
}

// extractTarGz unpacks a gzip-compressed tar stream into destDir.
// Entry names are sanitized; entries escaping destDir are skipped.
func extractTarGz(r io.Reader, destDir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return errors.SetupFailed("decompress archive", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.SetupFailed("read archive", err)
		}

		clean := filepath.Clean(header.Name)
		if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
			continue
		}
		dest := filepath.Join(destDir, clean)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return errors.SetupFailed("extract archive", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return errors.SetupFailed("extract archive", err)
			}
			if err := writeFileFrom(tr, dest, header.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFileFrom(r io.Reader, dest string, perm os.FileMode) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return errors.SetupFailed("extract archive", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return errors.SetupFailed("extract archive", err)
	}
	return f.Close()
}

// flattenInstall locates the single top-level directory the archive
// extracted to and copies its lib/* and include/* entries directly into
// destDir.
func flattenInstall(extractDir, destDir string) error {
	entries, err := os.ReadDir(extractDir)
	if err != nil {
		return errors.SetupFailed("read extraction directory", err)
	}

	var root string
	for _, e := range entries {
		if e.IsDir() {
			root = filepath.Join(extractDir, e.Name())
			break
		}
	}
	if root == "" {
		return errors.SetupFailed("archive did not contain expected directory structure", nil)
	}

	for _, sub := range []string{"lib", "include"} {
		srcDir := filepath.Join(root, sub)
		files, err := os.ReadDir(srcDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.SetupFailed("read archive "+sub+" directory", err)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			src := filepath.Join(srcDir, f.Name())
			dst := filepath.Join(destDir, f.Name())
			if err := copyFile(src, dst); err != nil {
				return errors.SetupFailed(fmt.Sprintf("install %s", f.Name()), err)
			}
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
