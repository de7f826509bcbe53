package transcript

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeJobFile(t *testing.T, dir, jobName, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, jobName+".json"), []byte(contents), 0o644); err != nil {
		t.Fatalf("write job file: %v", err)
	}
}

func TestGetJobInfo(t *testing.T) {
	dir := t.TempDir()
	writeJobFile(t, dir, "call-001", `{
		"ApiMode": "analytics",
		"Status": "COMPLETED",
		"LanguageCode": "en-US",
		"MediaFormat": "wav",
		"TranscriptFileUri": "call-001-result.json"
	}`)

	store := NewFileStore(dir)
	info, err := store.GetJobInfo(context.Background(), "call-001")
	if err != nil {
		t.Fatalf("GetJobInfo: %v", err)
	}
	if info.JobName != "call-001" {
		t.Errorf("JobName = %q, want filled from file name", info.JobName)
	}
	if info.APIMode != ModeAnalytics || info.LanguageCode != "en-US" {
		t.Errorf("info = %+v", info)
	}
}

func TestGetJobInfoIncomplete(t *testing.T) {
	dir := t.TempDir()
	writeJobFile(t, dir, "call-001", `{"Status": "IN_PROGRESS"}`)

	store := NewFileStore(dir)
	_, err := store.GetJobInfo(context.Background(), "call-001")
	if !errors.Is(err, ErrJobNotComplete) {
		t.Fatalf("expected ErrJobNotComplete, got %v", err)
	}
}

func TestGetJobInfoMissing(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if _, err := store.GetJobInfo(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for missing job file")
	}
}

func TestFetchResultRetriesOnce(t *testing.T) {
	dir := t.TempDir()
	resultPath := filepath.Join(dir, "call-001-result.json")

	store := NewFileStore(dir)
	var slept []time.Duration
	store.sleep = func(d time.Duration) {
		slept = append(slept, d)
		// The result file shows up while the store is waiting.
		if err := os.WriteFile(resultPath, []byte(`{"Transcript":[]}`), 0o644); err != nil {
			t.Fatalf("write result: %v", err)
		}
	}

	info := JobInfo{JobName: "call-001", APIMode: ModeAnalytics, TranscriptURI: "call-001-result.json"}
	result, err := store.FetchResult(context.Background(), info)
	if err != nil {
		t.Fatalf("FetchResult: %v", err)
	}
	if result.Analytics == nil {
		t.Fatal("expected analytics payload")
	}
	if len(slept) != 1 || slept[0] != 3*time.Second {
		t.Errorf("slept = %v, want one 3s wait", slept)
	}
}

func TestFetchResultSecondMissIsFatal(t *testing.T) {
	store := NewFileStore(t.TempDir())
	var sleeps int
	store.sleep = func(time.Duration) { sleeps++ }

	info := JobInfo{JobName: "call-001", APIMode: ModeAnalytics, TranscriptURI: "gone.json"}
	if _, err := store.FetchResult(context.Background(), info); err == nil {
		t.Fatal("expected error when result never appears")
	}
	if sleeps != 1 {
		t.Errorf("sleeps = %d, want exactly 1", sleeps)
	}
}

func TestDecodeResultUnknownMode(t *testing.T) {
	if _, err := DecodeResult(APIMode("streaming"), []byte("{}")); err == nil {
		t.Fatal("expected error for unknown api mode")
	}
}
