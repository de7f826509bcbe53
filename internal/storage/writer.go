package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/analytics"
)

// Writer persists enriched conversation documents as JSON files in an
// output directory, one file per job.
type Writer struct {
	dir string
	mu  sync.Mutex
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write stores the document for jobName and returns the file path.
func (w *Writer) Write(jobName string, doc *analytics.Document) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", w.dir, err)
	}

	path := w.DocumentPath(jobName)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal document for %s: %w", jobName, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	return path, nil
}

// DocumentPath is where the document for jobName is stored.
func (w *Writer) DocumentPath(jobName string) string {
	return filepath.Join(w.dir, jobName+".json")
}
