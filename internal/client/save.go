package client

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrFileExists is returned when the destination file is already present.
var ErrFileExists = errors.New("destination file already exists")

// SaveTo writes the download body into dir under its served name. The data
// lands in a temporary file first and is renamed into place only once fully
// written, so a failed transfer leaves nothing behind. wrap may be nil.
func SaveTo(dir string, dl *Download, wrap func(io.Reader) io.Reader) (string, error) {
	dest := filepath.Join(dir, filepath.Base(dl.FileName))
	if _, err := os.Lstat(dest); err == nil {
		return "", fmt.Errorf("%w: %s", ErrFileExists, dest)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, ".dropctl-*")
	if err != nil {
		return "", err
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	var r io.Reader = dl.Body
	if wrap != nil {
		r = wrap(r)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}
	committed = true
	return dest, nil
}
