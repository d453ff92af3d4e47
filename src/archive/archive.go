// Package archive wraps the compression primitives the pipeline needs:
// zip a tree, unzip an archive, extract a tar.xz prebuilt bundle. The
// formats themselves are opaque to the rest of the pipeline.
package archive

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/ulikunitz/xz"
)

// Archiver performs archive operations with optional progress output
// for long-running compressions in verbose runs.
type Archiver struct {
	Verbose bool
	Out     io.Writer
}

// Zip compresses the contents of srcDir into destFile. Paths inside the
// archive are relative to srcDir, slash-separated.
func (a *Archiver) Zip(srcDir, destFile string) error {
	if err := os.MkdirAll(filepath.Dir(destFile), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", destFile, err)
	}

	out, err := os.Create(destFile)
	if err != nil {
		return fmt.Errorf("create %s: %w", destFile, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	bar := a.bar(-1, "zip "+filepath.Base(destFile))

	err = filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		hdr.Method = zip.Deflate

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()

		_, err = io.Copy(io.MultiWriter(w, bar), in)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("zip %s: %w", srcDir, err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", destFile, err)
	}
	finishBar(bar)
	return out.Close()
}

// Unzip extracts src into destDir.
func (a *Archiver) Unzip(src, destDir string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer zr.Close()

	bar := a.bar(-1, "unzip "+filepath.Base(src))

	for _, f := range zr.File {
		target, err := securePath(destDir, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("read %s in %s: %w", f.Name, src, err)
		}
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm())
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(io.MultiWriter(out, bar), rc)
		rc.Close()
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}

	finishBar(bar)
	return nil
}

// ExtractTarXz extracts an xz-compressed tarball into destDir. The
// prebuilt tensorflow-lite bundles ship in this format.
func (a *Archiver) ExtractTarXz(src, destDir string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	xr, err := xz.NewReader(in)
	if err != nil {
		return fmt.Errorf("xz %s: %w", src, err)
	}

	bar := a.bar(-1, "extract "+filepath.Base(src))
	tr := tar.NewReader(xr)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tar %s: %w", src, err)
		}

		target, err := securePath(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode).Perm())
			if err != nil {
				return err
			}
			_, err = io.Copy(io.MultiWriter(out, bar), tr)
			if cerr := out.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("extract %s: %w", hdr.Name, err)
			}
		default:
			// Symlinks and special files do not occur in the bundles
			// we consume; ignore rather than fail.
		}
	}

	finishBar(bar)
	return nil
}

// bar returns a live progress bar in verbose mode and a silent one
// otherwise, so call sites need no branching.
func (a *Archiver) bar(total int64, desc string) *progressbar.ProgressBar {
	if !a.Verbose || a.Out == nil {
		return progressbar.DefaultBytesSilent(total, desc)
	}
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(a.Out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetSpinnerChangeInterval(0),
		progressbar.OptionClearOnFinish(),
	)
}

func finishBar(bar *progressbar.ProgressBar) {
	_ = bar.Finish()
}

// securePath joins name under root, refusing entries that would escape
// the extraction directory.
func securePath(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes extraction dir: %s", name)
	}
	return target, nil
}
