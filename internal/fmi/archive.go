package fmi

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/specialistvlad/cosimgo/internal/ctxlog"
)

const modelDescriptionFile = "modelDescription.xml"

// OpenArchive resolves the descriptor of a slave binary given either a .fmu
// archive or an already unpacked directory. Archives are extracted to a
// temporary directory; the returned cleanup removes it and is never nil.
func OpenArchive(ctx context.Context, path string) (*Descriptor, func() error, error) {
	logger := ctxlog.FromContext(ctx).With("archive", path)
	noop := func() error { return nil }

	info, err := os.Stat(path)
	if err != nil {
		return nil, noop, fmt.Errorf("cannot access slave binary %s: %w", path, err)
	}

	root := path
	cleanup := noop
	if !info.IsDir() {
		tmp, err := os.MkdirTemp("", "cosimgo-fmu-*")
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create unpack directory for %s: %w", path, err)
		}
		cleanup = func() error { return os.RemoveAll(tmp) }
		logger.Debug("Unpacking archive.", "dir", tmp)
		if err := unzip(path, tmp); err != nil {
			_ = cleanup()
			return nil, noop, err
		}
		root = tmp
	}

	f, err := os.Open(filepath.Join(root, modelDescriptionFile))
	if err != nil {
		_ = cleanup()
		return nil, noop, fmt.Errorf("slave %s has no %s: %w", path, modelDescriptionFile, err)
	}
	defer f.Close()

	desc, err := ParseModelDescription(ctx, f, path)
	if err != nil {
		_ = cleanup()
		return nil, noop, err
	}
	desc.Root = root
	desc.BinaryPath = filepath.Join(root, "binaries", platformDir(), desc.ModelIdentifier+sharedLibExt())
	logger.Debug("Archive resolved.", "root", root, "binary", desc.BinaryPath)
	return desc, cleanup, nil
}

// unzip extracts src into dst, refusing entries that would escape dst.
func unzip(src, dst string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", src, err)
	}
	defer zr.Close()

	prefix := filepath.Clean(dst) + string(os.PathSeparator)
	for _, zf := range zr.File {
		target := filepath.Join(dst, zf.Name)
		if !strings.HasPrefix(target, prefix) {
			return fmt.Errorf("archive %s: entry %q escapes the unpack directory", src, zf.Name)
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(zf, target); err != nil {
			return fmt.Errorf("archive %s: %w", src, err)
		}
	}
	return nil
}

func extractFile(zf *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// platformDir is the binaries/ sub directory name for the running platform.
func platformDir() string {
	bits := "64"
	if runtime.GOARCH == "386" || runtime.GOARCH == "arm" {
		bits = "32"
	}
	switch runtime.GOOS {
	case "windows":
		return "win" + bits
	case "darwin":
		return "darwin" + bits
	default:
		return runtime.GOOS + bits
	}
}

func sharedLibExt() string {
	switch runtime.GOOS {
	case "windows":
		return ".dll"
	case "darwin":
		return ".dylib"
	default:
		return ".so"
	}
}
