package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
)

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return e.send(t, method, path, header, body)
}

func (e *testEnv) send(t *testing.T, method, path string, header http.Header, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func quizBody(title string) map[string]any {
	return map[string]any{
		"title":     title,
		"timeLimit": 2,
		"questions": []map[string]any{
			{"text": "Capital of France?", "type": "multiple", "options": []string{"Paris", "Rome"}, "correctAnswer": 0},
			{"text": "The sky is green.", "type": "truefalse", "correctAnswer": 1},
		},
	}
}

func TestAPIQuizAuthoring(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token(t, "alice", "Alice")
	bob := env.token(t, "bob", "Bob")

	resp, _ := env.do(t, http.MethodPost, "/quizzes", "", quizBody("Geo"))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, created := env.do(t, http.MethodPost, "/quizzes", alice, quizBody("Geo"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("expected quiz id, got %v", created)
	}

	resp, quiz := env.do(t, http.MethodGet, "/quizzes/"+id, "", nil)
	if resp.StatusCode != http.StatusOK || quiz["title"] != "Geo" {
		t.Fatalf("expected quiz Geo, got %d %v", resp.StatusCode, quiz)
	}

	resp, _ = env.do(t, http.MethodPut, "/quizzes/"+id, bob, quizBody("Hijacked"))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodPut, "/quizzes/"+id, alice, quizBody("Geography"))
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	_, quiz = env.do(t, http.MethodGet, "/quizzes/"+id, "", nil)
	if quiz["title"] != "Geography" {
		t.Fatalf("expected updated title after cache invalidation, got %v", quiz["title"])
	}

	resp, _ = env.do(t, http.MethodDelete, "/quizzes/"+id, alice, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 on delete, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/quizzes/"+id, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestAPIValidationError(t *testing.T) {
	env := newTestEnv(t)
	body := quizBody("Broken")
	body["questions"] = []map[string]any{
		{"text": "Pick one", "type": "multiple", "options": []string{"only"}, "correctAnswer": 0},
	}

	resp, payload := env.do(t, http.MethodPost, "/quizzes", env.token(t, "alice", "Alice"), body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if payload["field"] != "options" || payload["question"] != float64(0) {
		t.Fatalf("expected options error on first question, got %v", payload)
	}
}

func TestAPIAttemptLifecycle(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token(t, "u1", "Alice")

	resp, state := env.do(t, http.MethodPost, "/attempts", alice, map[string]any{"source": "store", "quizId": "quiz-1"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d %v", resp.StatusCode, state)
	}
	attemptID, _ := state["attemptId"].(string)
	base := "/attempts/" + attemptID

	resp, _ = env.do(t, http.MethodGet, base, env.token(t, "u2", "Mallory"), nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for another user, got %d", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodPost, base+"/confirm", alice, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 confirming without selection, got %d", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodPost, base+"/select", alice, map[string]any{"option": 9})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for option out of range, got %d", resp.StatusCode)
	}

	env.do(t, http.MethodPost, base+"/select", alice, map[string]any{"option": 1})
	resp, confirmed := env.do(t, http.MethodPost, base+"/confirm", alice, nil)
	if resp.StatusCode != http.StatusOK || confirmed["correct"] != true {
		t.Fatalf("expected correct confirm, got %d %v", resp.StatusCode, confirmed)
	}

	resp, outcome := env.do(t, http.MethodPost, base+"/finish", alice, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on finish, got %d", resp.StatusCode)
	}
	result, _ := outcome["result"].(map[string]any)
	if result["score"] != float64(1) {
		t.Fatalf("expected score 1, got %v", result)
	}

	resp, again := env.do(t, http.MethodPost, base+"/finish", alice, nil)
	againResult, _ := again["result"].(map[string]any)
	if resp.StatusCode != http.StatusOK || againResult["id"] != result["id"] {
		t.Fatalf("expected the same outcome on repeated finish, got %v", again)
	}

	resp, review := env.do(t, http.MethodGet, base+"/review", alice, nil)
	if resp.StatusCode != http.StatusOK || review["percentage"] != float64(100) {
		t.Fatalf("expected full marks review, got %d %v", resp.StatusCode, review)
	}

	resp, latest := env.do(t, http.MethodGet, "/results/store/quiz-1", alice, nil)
	if resp.StatusCode != http.StatusOK || latest["message"] != "Excellent!" {
		t.Fatalf("expected stored review, got %d %v", resp.StatusCode, latest)
	}

	resp, _ = env.do(t, http.MethodDelete, base, alice, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 ending attempt, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, base, alice, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after end, got %d", resp.StatusCode)
	}
}

func TestAPIStartAttemptUnknownQuiz(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, http.MethodPost, "/attempts", "", map[string]any{"quizId": "nope"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/attempts", "", map[string]any{"source": "elsewhere", "quizId": "nope"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown source, got %d", resp.StatusCode)
	}
}

func TestAPISignOutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "u1", "Alice")

	resp, _ := env.do(t, http.MethodGet, "/me/dashboard", tok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected dashboard, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/auth/signout", tok, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 on signout, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/me/dashboard", tok, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after signout, got %d", resp.StatusCode)
	}
}

func TestAPICatalog(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/catalog")
	if err != nil {
		t.Fatalf("get catalog: %v", err)
	}
	defer resp.Body.Close()
	var types []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&types); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(types) == 0 || types[0]["id"] != "default" {
		t.Fatalf("expected catalog types starting with default, got %v", types)
	}
}

func (e *testEnv) list(t *testing.T, path string) []map[string]any {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	if err != nil {
		t.Fatalf("get %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get %s: status %d", path, resp.StatusCode)
	}
	var items []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return items
}

func TestAPIQuizSearch(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token(t, "alice", "Alice")
	geo := quizBody("Geography")
	geo["description"] = "Capitals and RIVERS"
	for _, body := range []map[string]any{geo, quizBody("History")} {
		if resp, _ := env.do(t, http.MethodPost, "/quizzes", alice, body); resp.StatusCode != http.StatusCreated {
			t.Fatalf("create: %d", resp.StatusCode)
		}
	}

	if all := env.list(t, "/quizzes"); len(all) != 3 {
		t.Fatalf("expected every quiz without a search term, got %d", len(all))
	}
	cases := map[string][]string{
		"geo":        {"Geography"},
		"rivers":     {"Geography"},
		"HISTORY":    {"History"},
		"arithmetic": {"Arithmetic"},
		"zoology":    nil,
	}
	for term, want := range cases {
		got := env.list(t, "/quizzes?q="+term)
		if len(got) != len(want) {
			t.Fatalf("search %q: expected %v, got %v", term, want, got)
		}
		for i, title := range want {
			if got[i]["title"] != title {
				t.Fatalf("search %q: expected %q, got %v", term, title, got[i]["title"])
			}
		}
	}
}

func TestAPIQuizHidesAnswersFromNonOwners(t *testing.T) {
	env := newTestEnv(t)

	hasAnswer := func(quiz map[string]any) bool {
		questions, _ := quiz["questions"].([]any)
		if len(questions) == 0 {
			t.Fatalf("expected questions in %v", quiz)
		}
		_, ok := questions[0].(map[string]any)["correctAnswer"]
		return ok
	}

	_, anon := env.do(t, http.MethodGet, "/quizzes/quiz-1", "", nil)
	if hasAnswer(anon) {
		t.Fatalf("expected answer keys hidden from anonymous callers, got %v", anon)
	}
	_, other := env.do(t, http.MethodGet, "/quizzes/quiz-1", env.token(t, "u2", "Bob"), nil)
	if hasAnswer(other) {
		t.Fatalf("expected answer keys hidden from other users, got %v", other)
	}
	_, own := env.do(t, http.MethodGet, "/quizzes/quiz-1", env.token(t, "u1", "Alice"), nil)
	if !hasAnswer(own) {
		t.Fatalf("expected answer keys for the owner, got %v", own)
	}
	for _, quiz := range env.list(t, "/quizzes") {
		if hasAnswer(quiz) {
			t.Fatalf("expected browse list without answer keys, got %v", quiz)
		}
	}
}

func TestAPIAnonymousAttemptKey(t *testing.T) {
	env := newTestEnv(t)
	resp, state := env.do(t, http.MethodPost, "/attempts", "", map[string]any{"source": "catalog", "quizId": "react"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	key, _ := state["attemptKey"].(string)
	attemptID, _ := state["attemptId"].(string)
	if key == "" || attemptID == "" || state["status"] != "in-progress" {
		t.Fatalf("expected snapshot with attempt key, got %v", state)
	}
	base := "/attempts/" + attemptID

	if resp, _ := env.do(t, http.MethodGet, base, "", nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 without key, got %d", resp.StatusCode)
	}
	wrong := http.Header{"X-Attempt-Key": {"not-the-key"}}
	if resp, _ := env.send(t, http.MethodDelete, base, wrong, nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 ending with wrong key, got %d", resp.StatusCode)
	}

	withKey := http.Header{"X-Attempt-Key": {key}}
	if resp, _ := env.send(t, http.MethodGet, base, withKey, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d", resp.StatusCode)
	}
	if resp, _ := env.send(t, http.MethodDelete, base, withKey, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 ending with key, got %d", resp.StatusCode)
	}

	_, signedIn := env.do(t, http.MethodPost, "/attempts", env.token(t, "u1", "Alice"), map[string]any{"quizId": "quiz-1"})
	if _, ok := signedIn["attemptKey"]; ok {
		t.Fatalf("expected no attempt key for signed-in attempts, got %v", signedIn)
	}
}
