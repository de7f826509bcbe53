package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrJobNotComplete is returned when a job exists but has not finished.
var ErrJobNotComplete = errors.New("transcription job has not completed")

// Store retrieves job metadata and completed result documents. The engine
// treats this as an external collaborator; FileStore is the local-disk
// implementation used by the CLI.
type Store interface {
	GetJobInfo(ctx context.Context, jobName string) (JobInfo, error)
	FetchResult(ctx context.Context, info JobInfo) (*Result, error)
}

// FileStore reads job metadata files (<job>.json) from a directory.
// Result fetches have been seen to fail transiently on shared filesystems,
// so a miss is retried once after a fixed delay.
type FileStore struct {
	dir   string
	sleep func(time.Duration)
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, sleep: time.Sleep}
}

func (s *FileStore) GetJobInfo(_ context.Context, jobName string) (JobInfo, error) {
	path := filepath.Join(s.dir, jobName+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return JobInfo{}, fmt.Errorf("load job info for %q: %w", jobName, err)
	}

	var info JobInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return JobInfo{}, fmt.Errorf("parse job info for %q: %w", jobName, err)
	}
	if info.JobName == "" {
		info.JobName = jobName
	}
	if info.Status != "COMPLETED" {
		return info, fmt.Errorf("job %q in state %q: %w", jobName, info.Status, ErrJobNotComplete)
	}
	return info, nil
}

func (s *FileStore) FetchResult(ctx context.Context, info JobInfo) (*Result, error) {
	path := info.TranscriptURI
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.dir, path)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// One retry after a short delay; a fresh result file can lag the
		// job status on some backends.
		s.sleep(3 * time.Second)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch result for job %q: %w", info.JobName, err)
	}

	return DecodeResult(info.APIMode, data)
}

// DecodeResult parses raw result-document bytes for the given API mode.
func DecodeResult(mode APIMode, data []byte) (*Result, error) {
	switch mode {
	case ModeAnalytics:
		var doc AnalyticsResult
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse analytics result: %w", err)
		}
		return &Result{Mode: mode, Analytics: &doc}, nil
	case ModeStandard:
		var doc StandardResult
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse standard result: %w", err)
		}
		return &Result{Mode: mode, Standard: &doc}, nil
	default:
		return nil, fmt.Errorf("unknown api mode %q", mode)
	}
}
