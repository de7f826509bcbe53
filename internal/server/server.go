package server

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// Handler builds the read-only HTTP API over the conversation index.
func Handler(store ConversationStore) http.Handler {
	mux := http.NewServeMux()
	registerAPIRoutes(mux, store)
	return mux
}

// Serve blocks, listening on addr.
func Serve(addr string, store ConversationStore, log *logrus.Entry) error {
	log.WithField("addr", addr).Info("conversation API listening")
	return http.ListenAndServe(addr, Handler(store))
}
