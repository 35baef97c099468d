package http

import (
	"net/http"

	"quizdesk/internal/app"
	"quizdesk/internal/identity"
)

// NewRouter assembles the REST and websocket surfaces behind the auth middleware.
func NewRouter(service *app.QuizService, auth *identity.Provider) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ws", NewWSHandler(service).ServeWS)
	NewAPIHandler(service, auth).Register(mux)
	return auth.Middleware(mux)
}
