// Package publish persists the assembled snapshot: an atomic local
// write for the dashboard, and an optional compressed upload to a
// remote collector.
package publish

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kubehealth/kubehealth-agent/pkg/model"
)

// FileWriter writes snapshots to a local path atomically: the document
// is staged in a temp file in the same directory and renamed into
// place, so a reader never sees a partial JSON document.
type FileWriter struct {
	path string
}

// NewFileWriter creates a writer targeting path.
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{path: path}
}

// Path returns the target path.
func (w *FileWriter) Path() string {
	return w.path
}

// Write persists the snapshot. It returns the number of bytes written.
func (w *FileWriter) Write(snap model.SystemSnapshot) (int64, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("publish: encoding snapshot: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("publish: creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(w.path)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("publish: creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, fmt.Errorf("publish: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("publish: closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, w.path); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("publish: renaming into place: %w", err)
	}
	return int64(len(data)), nil
}

// ReadPrevious loads the last published snapshot, used to carry the
// rolling history across restarts. A missing file returns (nil, nil):
// first run, nothing to recover. A corrupt file is an error so the
// caller can decide to start fresh explicitly.
func ReadPrevious(path string) (*model.SystemSnapshot, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("publish: reading %s: %w", path, err)
	}

	var snap model.SystemSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("publish: parsing %s: %w", path, err)
	}
	return &snap, nil
}
