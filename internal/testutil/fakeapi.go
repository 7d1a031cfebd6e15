package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// FakeUser is an account known to FakeAPI.
type FakeUser struct {
	ID       string `json:"user_uuid"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"-"`
}

// FakeTask is a task held by FakeAPI, in wire form.
type FakeTask struct {
	ID            string   `json:"task_uuid"`
	Title         string   `json:"title"`
	Description   *string  `json:"description"`
	Status        string   `json:"status"`
	Priority      int      `json:"priority"`
	DueDate       *string  `json:"due_date"`
	Tags          []string `json:"tags"`
	AssignedTo    *string  `json:"assigned_to"`
	CreatedDate   string   `json:"created_date"`
	CompletedDate *string  `json:"completed_date"`
}

// RecordedRequest is one request seen by FakeAPI.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
}

type injected struct {
	status int
	body   string
	times  int
}

// FakeAPI is an in-memory task API served over HTTP for tests.
//
// Tokens are "tok1", "tok2", ... unless JWTTTL is set, in which case they are
// signed JWTs expiring after JWTTTL.
type FakeAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	users    map[string]*FakeUser
	tasks    []*FakeTask
	tokens   map[string]string
	expired  map[string]bool
	issued   int
	requests []RecordedRequest
	failures map[string]*injected

	// JWTTTL switches token issuing to signed JWTs.
	JWTTTL time.Duration

	// RefreshDelay stalls refresh responses, to exercise coalescing.
	RefreshDelay time.Duration
}

// NewFakeAPI starts a fake API that stops when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		users:    make(map[string]*FakeUser),
		tokens:   make(map[string]string),
		expired:  make(map[string]bool),
		failures: make(map[string]*injected),
	}
	f.Server = httptest.NewServer(f.router())
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL.
func (f *FakeAPI) URL() string { return f.Server.URL }

func (f *FakeAPI) router() http.Handler {
	r := chi.NewRouter()
	r.Use(f.record)

	r.Post("/auth/login-json", f.handleLogin)
	r.Post("/auth/register", f.handleRegister)
	r.Get("/tasks/statuses", f.handleStatuses)

	r.Group(func(r chi.Router) {
		r.Use(f.authMiddleware)
		r.Post("/auth/logout", f.handleLogout)
		r.Get("/auth/me", f.handleMe)
		r.Post("/auth/refresh", f.handleRefresh)

		r.Get("/tasks", f.handleListTasks)
		r.Post("/tasks", f.handleCreateTask)
		r.Put("/tasks/{taskId}", f.handleUpdateTask)
		r.Delete("/tasks/{taskId}", f.handleDeleteTask)
		r.Post("/tasks/{taskId}/assign", f.handleAssignTask)
		r.Post("/tasks/{taskId}/complete", f.handleCompleteTask)

		r.Get("/users", f.handleListUsers)
		r.Get("/users/{userId}", f.handleGetUser)
	})
	return r
}

// AddUser registers an account and returns its id.
func (f *FakeAPI) AddUser(username, password, name, email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &FakeUser{ID: uuid.NewString(), Username: username, Password: password, Name: name, Email: email}
	f.users[username] = u
	return u.ID
}

// AddTask stores a task and returns its id.
func (f *FakeAPI) AddTask(title, status string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &FakeTask{
		ID:          uuid.NewString(),
		Title:       title,
		Status:      status,
		Priority:    2,
		Tags:        []string{},
		CreatedDate: time.Now().UTC().Format("2006-01-02T15:04:05"),
	}
	f.tasks = append(f.tasks, t)
	return t.ID
}

// Task returns a copy of the stored task.
func (f *FakeAPI) Task(id string) (FakeTask, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.ID == id {
			return *t, true
		}
	}
	return FakeTask{}, false
}

// TaskCount returns the number of stored tasks.
func (f *FakeAPI) TaskCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

// IssueToken creates a valid token for username without a login request.
func (f *FakeAPI) IssueToken(username string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueLocked(f.users[username].ID, username)
}

// Revoke invalidates token.
func (f *FakeAPI) Revoke(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
}

// Expire makes token unusable for everything except refresh.
func (f *FakeAPI) Expire(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired[token] = true
}

// Accept makes an externally built token valid for username.
func (f *FakeAPI) Accept(token, username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = username
}

// RevokeAll invalidates every issued token.
func (f *FakeAPI) RevokeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = make(map[string]string)
}

// Fail makes the next times requests to "METHOD /path" answer status with a
// JSON detail message. times <= 0 means forever.
func (f *FakeAPI) Fail(method, path string, status int, detail string, times int) {
	body, _ := json.Marshal(map[string]string{"detail": detail})
	f.FailRaw(method, path, status, string(body), times)
}

// FailRaw is like Fail with a verbatim JSON body.
func (f *FakeAPI) FailRaw(method, path string, status int, body string, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = &injected{status: status, body: body, times: times}
}

// Requests returns every recorded request.
func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// Count returns how many requests hit "METHOD /path".
func (f *FakeAPI) Count(method, path string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Last returns the most recent request to "METHOD /path".
func (f *FakeAPI) Last(method, path string) (RecordedRequest, bool) {
	reqs := f.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return RecordedRequest{}, false
}

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
			Body:   string(body),
		})
		inj := f.failures[r.Method+" "+r.URL.Path]
		if inj != nil && inj.times > 0 {
			inj.times--
			if inj.times == 0 {
				delete(f.failures, r.Method+" "+r.URL.Path)
			}
		}
		f.mu.Unlock()

		if inj != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(inj.status)
			io.WriteString(w, inj.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userKey struct{}

func contextWithUser(r *http.Request, username string) context.Context {
	return context.WithValue(r.Context(), userKey{}, username)
}

func userFrom(r *http.Request) string {
	username, _ := r.Context().Value(userKey{}).(string)
	return username
}

func dueDay(t *FakeTask) string {
	if t.DueDate == nil || len(*t.DueDate) < 10 {
		return ""
	}
	return (*t.DueDate)[:10]
}

func (f *FakeAPI) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		username, ok := f.tokens[token]
		expired := f.expired[token]
		f.mu.Unlock()
		if token == "" || !ok {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		if expired && r.URL.Path != "/auth/refresh" {
			writeDetail(w, http.StatusUnauthorized, "Token has expired")
			return
		}
		if f.JWTTTL > 0 {
			if exp, err := tokenExp(token); err != nil || time.Now().After(exp) {
				writeDetail(w, http.StatusUnauthorized, "Token has expired")
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(contextWithUser(r, username)))
	})
}

func (f *FakeAPI) issueLocked(userID, username string) string {
	f.issued++
	token := "tok" + strconv.Itoa(f.issued)
	if f.JWTTTL > 0 {
		token = SignedToken(username, userID, time.Now().Add(f.JWTTTL), f.issued)
	}
	f.tokens[token] = username
	return token
}

// SignedToken builds an HS256 JWT with the claims the API issues.
func SignedToken(username, userID string, exp time.Time, nonce int) string {
	claims := jwt.MapClaims{
		"sub":     username,
		"user_id": userID,
		"exp":     exp.Unix(),
		"jti":     strconv.Itoa(nonce),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("fake-api-secret"))
	if err != nil {
		panic(err)
	}
	return s
}

func tokenExp(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("no exp claim")
	}
	return exp.Time, nil
}

func (f *FakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	f.mu.Lock()
	u, ok := f.users[req.Username]
	if !ok || u.Password != req.Password {
		f.mu.Unlock()
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	token := f.issueLocked(u.ID, u.Username)
	user := *u
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   1800,
		"user":         user,
	})
}

func (f *FakeAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	f.mu.Lock()
	if _, exists := f.users[req.Username]; exists {
		f.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Username already registered")
		return
	}
	u := &FakeUser{ID: uuid.NewString(), Username: req.Username, Email: req.Email, Name: req.Name, Password: req.Password}
	f.users[u.Username] = u
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "User registered successfully",
		"user_id":  u.ID,
		"username": u.Username,
		"email":    u.Email,
		"name":     u.Name,
	})
}

func (f *FakeAPI) handleStatuses(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, `{"TO_DO":"To Do","IN_PROGRESS":"In Progress","DONE":"Done"}`)
}

func (f *FakeAPI) handleLogout(w http.ResponseWriter, r *http.Request) {
	f.Revoke(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (f *FakeAPI) handleMe(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	u := *f.users[userFrom(r)]
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"user_uuid":    u.ID,
		"username":     u.Username,
		"name":         u.Name,
		"email":        u.Email,
		"created_date": "2024-01-01T00:00:00",
	})
}

func (f *FakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if f.RefreshDelay > 0 {
		time.Sleep(f.RefreshDelay)
	}
	f.mu.Lock()
	u := f.users[userFrom(r)]
	token := f.issueLocked(u.ID, u.Username)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   1800,
	})
}

func (f *FakeAPI) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f.mu.Lock()
	me := f.users[userFrom(r)].ID
	var out []FakeTask
	for _, t := range f.tasks {
		if s := q.Get("status"); s != "" && t.Status != s {
			continue
		}
		if q.Get("assigned_to_me") == "true" && (t.AssignedTo == nil || *t.AssignedTo != me) {
			continue
		}
		if from := q.Get("due_date_from"); from != "" && (dueDay(t) == "" || dueDay(t) < from) {
			continue
		}
		if to := q.Get("due_date_to"); to != "" && (dueDay(t) == "" || dueDay(t) > to) {
			continue
		}
		out = append(out, *t)
	}
	f.mu.Unlock()

	skip, _ := strconv.Atoi(q.Get("skip"))
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	if skip > len(out) {
		skip = len(out)
	}
	out = out[skip:]
	if limit < len(out) {
		out = out[:limit]
	}
	if out == nil {
		out = []FakeTask{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var t FakeTask
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil || t.Title == "" || t.Status == "" || t.Priority == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"msg": "field required"}},
		})
		return
	}
	t.ID = uuid.NewString()
	t.CreatedDate = time.Now().UTC().Format("2006-01-02T15:04:05")
	f.mu.Lock()
	f.tasks = append(f.tasks, &t)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, t)
}

// withTask runs fn on the task named in the URL, or answers 404.
func (f *FakeAPI) withTask(w http.ResponseWriter, r *http.Request, fn func(i int, t *FakeTask)) {
	id := chi.URLParam(r, "taskId")
	f.mu.Lock()
	for i, t := range f.tasks {
		if t.ID == id {
			fn(i, t)
			out := *t
			f.mu.Unlock()
			writeJSON(w, http.StatusOK, out)
			return
		}
	}
	f.mu.Unlock()
	writeDetail(w, http.StatusNotFound, "Task not found")
}

func (f *FakeAPI) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	f.withTask(w, r, func(_ int, t *FakeTask) {
		for k, v := range patch {
			switch k {
			case "title":
				json.Unmarshal(v, &t.Title)
			case "description":
				json.Unmarshal(v, &t.Description)
			case "status":
				json.Unmarshal(v, &t.Status)
			case "priority":
				json.Unmarshal(v, &t.Priority)
			case "due_date":
				json.Unmarshal(v, &t.DueDate)
			case "tags":
				json.Unmarshal(v, &t.Tags)
			}
		}
	})
}

func (f *FakeAPI) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	f.withTask(w, r, func(i int, _ *FakeTask) {
		f.tasks = append(f.tasks[:i:i], f.tasks[i+1:]...)
	})
}

func (f *FakeAPI) handleAssignTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserUUID *string `json:"user_uuid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	f.withTask(w, r, func(_ int, t *FakeTask) {
		t.AssignedTo = req.UserUUID
	})
}

func (f *FakeAPI) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	f.withTask(w, r, func(_ int, t *FakeTask) {
		now := time.Now().UTC().Format("2006-01-02T15:04:05")
		t.Status = "Done"
		t.CompletedDate = &now
	})
}

func (f *FakeAPI) handleListUsers(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	out := make([]FakeUser, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	f.mu.Unlock()
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit < len(out) {
		out = out[:limit]
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userId")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			writeJSON(w, http.StatusOK, *u)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "User not found")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
