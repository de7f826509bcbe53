package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/storage"
)

var jobNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ConversationStore is the read side of the processed-conversation index.
type ConversationStore interface {
	ListConversations() ([]storage.Conversation, error)
	GetConversationsByDate(date string) ([]storage.Conversation, error)
	GetConversation(jobName string) (storage.Conversation, error)
	GetDates() ([]string, error)
}

func registerAPIRoutes(mux *http.ServeMux, store ConversationStore) {
	mux.HandleFunc("GET /api/conversations", func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")

		var (
			conversations []storage.Conversation
			err           error
		)
		if date == "" {
			conversations, err = store.ListConversations()
		} else {
			conversations, err = store.GetConversationsByDate(date)
		}
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list conversations: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, conversations)
	})

	mux.HandleFunc("GET /api/conversations/{job}", func(w http.ResponseWriter, r *http.Request) {
		jobName := r.PathValue("job")
		if !validJobName(jobName) {
			writeJSONError(w, http.StatusForbidden, "invalid job name")
			return
		}

		conv, err := store.GetConversation(jobName)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, sql.ErrNoRows) {
				status = http.StatusNotFound
			}
			writeJSONError(w, status, fmt.Sprintf("get conversation: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, conv)
	})

	mux.HandleFunc("GET /api/conversations/{job}/document", func(w http.ResponseWriter, r *http.Request) {
		jobName := r.PathValue("job")
		if !validJobName(jobName) {
			writeJSONError(w, http.StatusForbidden, "invalid job name")
			return
		}

		conv, err := store.GetConversation(jobName)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "conversation not found")
			return
		}

		cleanPath := filepath.Clean(conv.DocumentPath)
		if cleanPath == "" || cleanPath == "." || strings.Contains(cleanPath, "..") {
			writeJSONError(w, http.StatusForbidden, "invalid document path")
			return
		}

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "document not found")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	})

	mux.HandleFunc("GET /api/dates", func(w http.ResponseWriter, r *http.Request) {
		dates, err := store.GetDates()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get dates: %v", err))
			return
		}
		if dates == nil {
			dates = []string{}
		}
		writeJSON(w, http.StatusOK, dates)
	})
}

func validJobName(name string) bool {
	return jobNamePattern.MatchString(name)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
