package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/storage"
)

type apiStoreStub struct {
	conversations map[string]storage.Conversation
	byDate        map[string][]storage.Conversation
	dates         []string
}

func (s apiStoreStub) ListConversations() ([]storage.Conversation, error) {
	list := make([]storage.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		list = append(list, conv)
	}
	return list, nil
}

func (s apiStoreStub) GetConversationsByDate(date string) ([]storage.Conversation, error) {
	return s.byDate[date], nil
}

func (s apiStoreStub) GetConversation(jobName string) (storage.Conversation, error) {
	if conv, ok := s.conversations[jobName]; ok {
		return conv, nil
	}
	return storage.Conversation{}, sql.ErrNoRows
}

func (s apiStoreStub) GetDates() ([]string, error) {
	return s.dates, nil
}

func TestAPIConversationsList(t *testing.T) {
	processed := time.Date(2026, 2, 26, 10, 0, 0, 0, time.UTC)
	store := apiStoreStub{
		conversations: map[string]storage.Conversation{
			"call-001": {JobName: "call-001", GUID: "0a1b2c", ProcessedAt: processed},
		},
		byDate: map[string][]storage.Conversation{
			"2026-02-26": {{JobName: "call-001", GUID: "0a1b2c", ProcessedAt: processed}},
		},
		dates: []string{"2026-02-26"},
	}

	h := Handler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); !strings.Contains(got, "application/json") {
		t.Fatalf("expected application/json content-type, got %q", got)
	}
	if !strings.Contains(rr.Body.String(), "call-001") {
		t.Fatalf("expected body to contain job name, got %s", rr.Body.String())
	}
}

func TestAPIConversationsListByDate(t *testing.T) {
	store := apiStoreStub{
		byDate: map[string][]storage.Conversation{
			"2026-02-26": {{JobName: "call-001"}},
		},
	}

	h := Handler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/conversations?date=2026-02-27", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "call-001") {
		t.Fatalf("expected empty list for other date, got %s", rr.Body.String())
	}
}

func TestAPIConversationDetail(t *testing.T) {
	store := apiStoreStub{
		conversations: map[string]storage.Conversation{
			"call-001": {JobName: "call-001", Agent: "jdoe", Duration: "12.5"},
		},
	}

	h := Handler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/call-001", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var conv storage.Conversation
	if err := json.Unmarshal(rr.Body.Bytes(), &conv); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if conv.Agent != "jdoe" {
		t.Fatalf("expected agent jdoe, got %q", conv.Agent)
	}
}

func TestAPIConversationNotFound(t *testing.T) {
	h := Handler(apiStoreStub{})

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/missing", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestAPIConversationInvalidJobName(t *testing.T) {
	h := Handler(apiStoreStub{})

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/bad%2Fname", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
}

func TestAPIConversationDocument(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "call-001.json")
	if err := os.WriteFile(docPath, []byte(`{"ConversationAnalytics":{"GUID":"0a1b2c"}}`), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}

	store := apiStoreStub{
		conversations: map[string]storage.Conversation{
			"call-001": {JobName: "call-001", DocumentPath: docPath},
		},
	}

	h := Handler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/call-001/document", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "0a1b2c") {
		t.Fatalf("expected document contents, got %s", rr.Body.String())
	}
}

func TestAPIConversationDocumentMissingFile(t *testing.T) {
	store := apiStoreStub{
		conversations: map[string]storage.Conversation{
			"call-001": {JobName: "call-001", DocumentPath: filepath.Join(t.TempDir(), "gone.json")},
		},
	}

	h := Handler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/call-001/document", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestAPIDates(t *testing.T) {
	h := Handler(apiStoreStub{dates: []string{"2026-02-26", "2026-02-25"}})

	req := httptest.NewRequest(http.MethodGet, "/api/dates", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var dates []string
	if err := json.Unmarshal(rr.Body.Bytes(), &dates); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(dates) != 2 || dates[0] != "2026-02-26" {
		t.Fatalf("unexpected dates %#v", dates)
	}
}
