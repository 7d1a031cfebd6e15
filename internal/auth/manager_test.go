package auth

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskctl/internal/apiclient"
	"taskctl/internal/apperr"
	"taskctl/internal/service"
	"taskctl/internal/session"
	"taskctl/internal/testutil"
)

type fixture struct {
	api     *testutil.FakeAPI
	store   *session.Store
	manager *Manager
	logs    *testutil.LogRecorder
	userID  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := testutil.NewFakeAPI(t)
	userID := api.AddUser("alice", "secret1", "Alice", "alice@example.com")

	client, err := apiclient.New(apiclient.Options{BaseURL: api.URL(), Timeout: 2 * time.Second})
	require.NoError(t, err)

	log, rec := testutil.NewLogger()
	store := session.NewStore(session.NewMemoryBackend(), log)
	return &fixture{
		api:     api,
		store:   store,
		manager: NewManager(client, store, log),
		logs:    rec,
		userID:  userID,
	}
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	_, err := f.manager.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)
}

func TestLogin_ThenCurrentUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	profile, err := f.manager.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, f.userID, profile.ID)
	assert.Equal(t, Authenticated, f.manager.State())

	tok, ok := f.store.Token()
	require.True(t, ok)
	assert.Equal(t, "tok1", tok)
	cached, ok := f.store.User()
	require.True(t, ok)
	assert.Equal(t, f.userID, cached.ID)

	me, err := f.manager.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, me.ID)
	assert.Equal(t, "alice", me.Username)
	assert.NotNil(t, me.CreatedDate)

	req, ok := f.api.Last(http.MethodGet, MePath)
	require.True(t, ok)
	assert.Equal(t, "Bearer tok1", req.Auth)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Login(context.Background(), "alice", "wrong-password")
	require.Error(t, err)
	assert.True(t, apperr.IsAuth(err, apperr.InvalidCredentials))
	assert.Contains(t, err.Error(), "Incorrect username or password")
	assert.Equal(t, Anonymous, f.manager.State())
	_, ok := f.store.Token()
	assert.False(t, ok)
}

func TestLogin_ServerError(t *testing.T) {
	f := newFixture(t)
	f.api.Fail(http.MethodPost, LoginPath, http.StatusInternalServerError, "database unavailable", 1)

	_, err := f.manager.Login(context.Background(), "alice", "secret1")
	assert.True(t, apperr.IsAuth(err, apperr.AuthServerError))
	assert.Contains(t, err.Error(), "database unavailable")
}

func TestLogin_ResponseWithoutToken(t *testing.T) {
	f := newFixture(t)
	f.api.FailRaw(http.MethodPost, LoginPath, http.StatusOK, `{"token_type":"bearer"}`, 1)

	_, err := f.manager.Login(context.Background(), "alice", "secret1")
	assert.True(t, apperr.IsAuth(err, apperr.MalformedResponse))
	_, ok := f.store.Token()
	assert.False(t, ok)
}

func TestLogin_FailureKeepsPreviousSession(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	_, err := f.manager.Login(context.Background(), "alice", "nope-nope")
	require.Error(t, err)
	tok, ok := f.store.Token()
	assert.True(t, ok)
	assert.Equal(t, "tok1", tok)
}

func TestLogin_RequiresCredentials(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Login(context.Background(), "", "")
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, f.api.Requests())
}

func TestCurrentUser_NoTokenMakesNoRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.CurrentUser(context.Background())
	assert.True(t, apperr.IsAuth(err, apperr.NotAuthenticated))
	assert.Empty(t, f.api.Requests())
}

func TestCurrentUser_UnauthorizedClearsSession(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.api.RevokeAll()

	_, err := f.manager.CurrentUser(context.Background())
	assert.True(t, apperr.IsAuth(err, apperr.SessionExpired))
	_, ok := f.store.Token()
	assert.False(t, ok)
	_, ok = f.store.User()
	assert.False(t, ok)
	assert.Equal(t, Anonymous, f.manager.State())
}

func TestCurrentUser_ServerErrorKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.api.Fail(http.MethodGet, MePath, http.StatusServiceUnavailable, "maintenance", 1)

	_, err := f.manager.CurrentUser(context.Background())
	assert.True(t, apperr.IsAuth(err, apperr.AuthServerError))
	assert.Contains(t, err.Error(), "maintenance")
	_, ok := f.store.Token()
	assert.True(t, ok)
}

func TestCurrentUser_MalformedProfile(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.api.FailRaw(http.MethodGet, MePath, http.StatusOK, `{"username":"alice"}`, 1)

	_, err := f.manager.CurrentUser(context.Background())
	assert.True(t, apperr.IsAuth(err, apperr.MalformedResponse))
}

func TestRefresh_ReplacesToken(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	require.NoError(t, f.manager.Refresh(context.Background()))
	tok, ok := f.store.Token()
	require.True(t, ok)
	assert.Equal(t, "tok2", tok)

	req, _ := f.api.Last(http.MethodPost, RefreshPath)
	assert.Equal(t, "Bearer tok1", req.Auth)
}

func TestRefresh_FailureClearsSession(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.api.Fail(http.MethodPost, RefreshPath, http.StatusInternalServerError, "boom", 1)

	err := f.manager.Refresh(context.Background())
	assert.True(t, apperr.IsAuth(err, apperr.SessionExpired))
	_, ok := f.store.Token()
	assert.False(t, ok)
}

func TestRefresh_SurvivesCallerCancellation(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.manager.refreshFrom(ctx, "tok1"))

	tok, ok := f.store.Token()
	require.True(t, ok, "a cancelled caller must not end the shared session")
	assert.Equal(t, "tok2", tok)
}

func TestRefresh_WithoutSession(t *testing.T) {
	f := newFixture(t)
	err := f.manager.Refresh(context.Background())
	assert.True(t, apperr.IsAuth(err, apperr.NotAuthenticated))
}

func TestDo_RetriesOnceAfterRefresh(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.api.Fail(http.MethodGet, "/tasks", http.StatusUnauthorized, "expired", 1)

	resp, err := f.manager.Do(context.Background(), apiclient.Request{Method: http.MethodGet, Path: "/tasks"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)

	assert.Equal(t, 1, f.api.Count(http.MethodPost, RefreshPath))
	assert.Equal(t, 2, f.api.Count(http.MethodGet, "/tasks"))
	last, _ := f.api.Last(http.MethodGet, "/tasks")
	assert.Equal(t, "Bearer tok2", last.Auth)
}

func TestDo_ConsecutiveUnauthorizedEndsSession(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.api.Fail(http.MethodGet, "/tasks", http.StatusUnauthorized, "nope", 0)

	_, err := f.manager.Do(context.Background(), apiclient.Request{Method: http.MethodGet, Path: "/tasks"})
	assert.True(t, apperr.IsAuth(err, apperr.SessionExpired))
	assert.Equal(t, 1, f.api.Count(http.MethodPost, RefreshPath))
	assert.Equal(t, 2, f.api.Count(http.MethodGet, "/tasks"))
	_, ok := f.store.Token()
	assert.False(t, ok)
}

func TestDo_RefreshFailureEndsSession(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.api.Fail(http.MethodGet, "/tasks", http.StatusUnauthorized, "nope", 1)
	f.api.Fail(http.MethodPost, RefreshPath, http.StatusUnauthorized, "nope", 1)

	_, err := f.manager.Do(context.Background(), apiclient.Request{Method: http.MethodGet, Path: "/tasks"})
	assert.True(t, apperr.IsAuth(err, apperr.SessionExpired))
	assert.Equal(t, 1, f.api.Count(http.MethodGet, "/tasks"))
}

func TestDo_OtherStatusesPassThrough(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.api.Fail(http.MethodGet, "/tasks", http.StatusForbidden, "forbidden", 1)

	resp, err := f.manager.Do(context.Background(), apiclient.Request{Method: http.MethodGet, Path: "/tasks"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Zero(t, f.api.Count(http.MethodPost, RefreshPath))
}

func TestDo_NoTokenMakesNoRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Do(context.Background(), apiclient.Request{Path: "/tasks"})
	assert.True(t, apperr.IsAuth(err, apperr.NotAuthenticated))
	assert.Empty(t, f.api.Requests())
}

func TestDo_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.api.RefreshDelay = 50 * time.Millisecond
	f.api.Expire("tok1")

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.manager.Do(context.Background(), apiclient.Request{Method: http.MethodGet, Path: "/tasks"})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, f.api.Count(http.MethodPost, RefreshPath))
}

func TestDo_ExpiredJWTRefreshesBeforeSending(t *testing.T) {
	f := newFixture(t)
	stale := testutil.SignedToken("alice", f.userID, time.Now().Add(-time.Minute), 99)
	require.NoError(t, f.store.SetToken(stale))
	assert.True(t, f.manager.Expired())

	fresh := testutil.SignedToken("alice", f.userID, time.Now().Add(time.Hour), 100)
	f.api.Accept(fresh, "alice")
	f.api.FailRaw(http.MethodPost, RefreshPath, http.StatusOK, `{"access_token":"`+fresh+`","token_type":"bearer"}`, 1)

	resp, err := f.manager.Do(context.Background(), apiclient.Request{Method: http.MethodGet, Path: "/tasks"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)

	reqs := f.api.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, RefreshPath, reqs[0].Path, "refresh happens before the request")
	assert.Equal(t, "Bearer "+fresh, reqs[1].Auth)
	assert.False(t, f.manager.Expired())
}

func TestLogout_ClearsEvenWhenServerFails(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.api.Fail(http.MethodPost, LogoutPath, http.StatusInternalServerError, "down", 1)

	require.NoError(t, f.manager.Logout(context.Background()))
	_, ok := f.store.Token()
	assert.False(t, ok)
	assert.True(t, f.logs.Contains(slog.LevelWarn, "logout request rejected"))
}

func TestLoginLogoutScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t)

	require.NoError(t, f.manager.Logout(ctx))

	req, ok := f.api.Last(http.MethodPost, LogoutPath)
	require.True(t, ok)
	assert.Equal(t, "Bearer tok1", req.Auth)

	_, ok = f.store.Token()
	assert.False(t, ok)
	_, ok = f.store.User()
	assert.False(t, ok)

	_, err := f.manager.CurrentUser(ctx)
	assert.True(t, apperr.IsAuth(err, apperr.NotAuthenticated))
	assert.Equal(t, 1, f.api.Count(http.MethodPost, LogoutPath))
}

func TestLogout_WithoutSessionMakesNoRequest(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Logout(context.Background()))
	assert.Empty(t, f.api.Requests())
}

func TestRegister_InvalidInputMakesNoRequest(t *testing.T) {
	tests := []struct {
		name string
		reg  service.Registration
	}{
		{"one char name", service.Registration{Username: "carol", Email: "carol@example.com", Name: " C ", Password: "secret1"}},
		{"padded short username", service.Registration{Username: "  ab  ", Email: "ab@example.com", Name: "Abe", Password: "secret1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.manager.Register(context.Background(), tt.reg)
			assert.True(t, apperr.IsValidation(err))
			assert.Empty(t, f.api.Requests())
		})
	}
}

func TestRegister_NameMinimumMatchesServer(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Register(context.Background(), service.Registration{
		Username: "bobby", Email: "bob@example.com", Name: "Bo", Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.api.Count(http.MethodPost, RegisterPath))
}

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)
	u, err := f.manager.Register(context.Background(), service.Registration{
		Username: "dave", Email: "dave@example.com", Name: "  Dave  ", Password: "secret1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "dave", u.Username)

	req, _ := f.api.Last(http.MethodPost, RegisterPath)
	assert.JSONEq(t, `{"username":"dave","email":"dave@example.com","name":"Dave","password":"secret1"}`, req.Body)
	_, ok := f.store.Token()
	assert.False(t, ok, "registration does not sign in")
}

func TestRegister_ServerDetailList(t *testing.T) {
	f := newFixture(t)
	f.api.FailRaw(http.MethodPost, RegisterPath, http.StatusUnprocessableEntity,
		`{"detail":[{"msg":"Password must contain at least one letter"},{"msg":"Username taken"}]}`, 1)

	_, err := f.manager.Register(context.Background(), service.Registration{
		Username: "erin", Email: "erin@example.com", Name: "Erin", Password: "123456",
	})
	assert.True(t, apperr.IsRequest(err, apperr.ClientError))
	assert.Equal(t, "Password must contain at least one letter; Username taken", err.Error())
}

func TestSession_Offline(t *testing.T) {
	f := newFixture(t)
	_, ok := f.manager.Session()
	assert.False(t, ok)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, f.store.SetToken(testutil.SignedToken("alice", f.userID, exp, 1)))
	require.NoError(t, f.store.SetUser(service.UserProfile{ID: f.userID, Username: "alice"}))

	s, ok := f.manager.Session()
	require.True(t, ok)
	assert.Equal(t, "alice", s.Subject)
	assert.True(t, exp.Equal(s.ExpiresAt))
	assert.False(t, s.Expired)
	require.NotNil(t, s.User)
	assert.Equal(t, f.userID, s.User.ID)
	assert.Empty(t, f.api.Requests())
}
