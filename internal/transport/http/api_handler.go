package http

import (
	"net/http"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
	"quizdesk/internal/identity"
)

// APIHandler serves the REST surface: authoring, listing, attempts and results.
type APIHandler struct {
	service *app.QuizService
	auth    *identity.Provider
}

func NewAPIHandler(service *app.QuizService, auth *identity.Provider) *APIHandler {
	return &APIHandler{service: service, auth: auth}
}

// Register mounts the REST routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /catalog", h.listCatalog)

	mux.HandleFunc("GET /quizzes", h.listQuizzes)
	mux.HandleFunc("POST /quizzes", h.createQuiz)
	mux.HandleFunc("GET /quizzes/{id}", h.getQuiz)
	mux.HandleFunc("PUT /quizzes/{id}", h.updateQuiz)
	mux.HandleFunc("DELETE /quizzes/{id}", h.deleteQuiz)

	mux.HandleFunc("GET /me/quizzes", h.ownQuizzes)
	mux.HandleFunc("GET /me/results", h.ownResults)
	mux.HandleFunc("GET /me/dashboard", h.dashboard)

	mux.HandleFunc("POST /attempts", h.startAttempt)
	mux.HandleFunc("GET /attempts/{id}", h.attemptState)
	mux.HandleFunc("POST /attempts/{id}/select", h.selectOption)
	mux.HandleFunc("POST /attempts/{id}/confirm", h.confirm)
	mux.HandleFunc("POST /attempts/{id}/finish", h.finish)
	mux.HandleFunc("GET /attempts/{id}/review", h.attemptReview)
	mux.HandleFunc("DELETE /attempts/{id}", h.endAttempt)

	mux.HandleFunc("GET /results/{source}/{quizId}", h.latestReview)

	mux.HandleFunc("POST /auth/signout", h.signOut)
}

type startRequest struct {
	Source string `json:"source"`
	QuizID string `json:"quizId"`
}

type selectRequest struct {
	Option *int `json:"option"`
}

type confirmResponse struct {
	Correct bool         `json:"correct"`
	State   app.Snapshot `json:"state"`
}

// attemptKeyHeader carries the key of an anonymous attempt.
const attemptKeyHeader = "X-Attempt-Key"

type startResponse struct {
	app.Snapshot
	AttemptKey string `json:"attemptKey,omitempty"`
}

type createdResponse struct {
	ID string `json:"id"`
}

func caller(r *http.Request) domain.Identity {
	who, _ := identity.CurrentUser(r.Context())
	return who
}

func parseSource(raw string) (domain.QuizSource, error) {
	switch domain.QuizSource(raw) {
	case "", domain.SourceStore:
		return domain.SourceStore, nil
	case domain.SourceCatalog:
		return domain.SourceCatalog, nil
	}
	return "", &domain.ValidationError{Question: -1, Field: "source", Reason: "must be store or catalog"}
}

func (h *APIHandler) listCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.QuizTypes())
}

// listQuizzes serves the public browse list, filtered by the optional q search term.
// Answer keys are left out; owners read them from /me/quizzes or /quizzes/{id}.
func (h *APIHandler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.SearchQuizzes(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	public := make([]domain.PublicQuiz, len(quizzes))
	for i, q := range quizzes {
		public[i] = q.Public()
	}
	writeJSON(w, http.StatusOK, public)
}

func (h *APIHandler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.GetQuiz(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if who := caller(r); who.IsZero() || who.ID != quiz.CreatedBy {
		writeJSON(w, http.StatusOK, quiz.Public())
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *APIHandler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var in domain.QuizInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	id, err := h.service.CreateQuiz(r.Context(), caller(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (h *APIHandler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	var in domain.QuizInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.UpdateQuiz(r.Context(), caller(r), r.PathValue("id"), in); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteQuiz(r.Context(), caller(r), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ownQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.ListOwnQuizzes(r.Context(), caller(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(quizzes))
}

func (h *APIHandler) ownResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.Results(r.Context(), caller(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(results))
}

func (h *APIHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context(), caller(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *APIHandler) startAttempt(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	source, err := parseSource(req.Source)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := h.service.StartAttempt(r.Context(), caller(r), source, req.QuizID)
	if err != nil {
		c.Close()
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, startResponse{Snapshot: c.Snapshot(), AttemptKey: c.Key()})
}

func (h *APIHandler) attempt(w http.ResponseWriter, r *http.Request) (*app.Controller, bool) {
	c, err := h.service.Attempt(caller(r), r.PathValue("id"), r.Header.Get(attemptKeyHeader))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return c, true
}

func (h *APIHandler) attemptState(w http.ResponseWriter, r *http.Request) {
	c, ok := h.attempt(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (h *APIHandler) selectOption(w http.ResponseWriter, r *http.Request) {
	c, ok := h.attempt(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Option == nil {
		writeError(w, &domain.ValidationError{Question: -1, Field: "option", Reason: "required"})
		return
	}
	if err := c.Select(*req.Option); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (h *APIHandler) confirm(w http.ResponseWriter, r *http.Request) {
	c, ok := h.attempt(w, r)
	if !ok {
		return
	}
	correct, err := c.Confirm()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, confirmResponse{Correct: correct, State: c.Snapshot()})
}

func (h *APIHandler) finish(w http.ResponseWriter, r *http.Request) {
	c, ok := h.attempt(w, r)
	if !ok {
		return
	}
	out, err := c.Finish(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *APIHandler) attemptReview(w http.ResponseWriter, r *http.Request) {
	c, ok := h.attempt(w, r)
	if !ok {
		return
	}
	out, done := c.Outcome()
	if !done {
		writeError(w, domain.ErrNoAttempt)
		return
	}
	writeJSON(w, http.StatusOK, app.BuildReview(out.Result, out.Questions))
}

func (h *APIHandler) endAttempt(w http.ResponseWriter, r *http.Request) {
	if err := h.service.EndAttempt(caller(r), r.PathValue("id"), r.Header.Get(attemptKeyHeader)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) latestReview(w http.ResponseWriter, r *http.Request) {
	source, err := parseSource(r.PathValue("source"))
	if err != nil {
		writeError(w, err)
		return
	}
	review, err := h.service.LatestReview(r.Context(), caller(r), source, r.PathValue("quizId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *APIHandler) signOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context(), identity.TokenFromRequest(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
