package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/portal-auth/logger"
	"github.com/skillsenselab/portal-auth/oauth"
	"github.com/skillsenselab/portal-auth/password"
	"github.com/skillsenselab/portal-auth/session"
	"github.com/skillsenselab/portal-auth/user"
)

const frontendOrigin = "http://localhost:3001"

// fakeProvider mimics the identity provider's token and user-info endpoints,
// counting outbound calls so tests can assert which legs of the handshake ran.
type fakeProvider struct {
	server        *httptest.Server
	tokenCalls    atomic.Int64
	userInfoCalls atomic.Int64
	tokenBody     string
	userInfoBody  string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	fp := &fakeProvider{
		tokenBody:    `{"access_token":"tok1","token_type":"Bearer"}`,
		userInfoBody: `{"id":"ext1","email":"a@b.com","name":"A B"}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		fp.tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fp.tokenBody))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		fp.userInfoCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fp.userInfoBody))
	})

	fp.server = httptest.NewServer(mux)
	t.Cleanup(fp.server.Close)
	return fp
}

// env bundles the wired handler with the collaborators tests poke at directly.
type env struct {
	engine   *gin.Engine
	provider *fakeProvider
	states   *oauth.MemoryStateStore
	users    *user.MemoryStore
	sessions *session.Service
}

func newTestEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fp := newFakeProvider(t)
	cfg := oauth.Config{
		ClientID:              "client-1",
		ClientSecret:          "secret-1",
		AuthorizationEndpoint: fp.server.URL + "/authorize",
		TokenEndpoint:         fp.server.URL + "/token",
		UserInfoEndpoint:      fp.server.URL + "/userinfo",
		CallbackURL:           "http://localhost:3001/auth/oauth/callback",
		FrontendOrigin:        frontendOrigin,
	}

	log := logger.NewDefault("test")
	states := oauth.NewMemoryStateStore()
	users := user.NewMemoryStore()
	sessions, err := session.NewService(session.Config{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("session service: %v", err)
	}

	h := NewHandler(
		cfg,
		oauth.NewClient(cfg, log),
		states,
		users,
		sessions,
		password.NewBcryptHasher(password.WithCost(4)),
		log,
	)

	engine := gin.New()
	h.RegisterRoutes(engine)

	return &env{engine: engine, provider: fp, states: states, users: users, sessions: sessions}
}

func (e *env) do(method, target, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

// startRedirect calls the redirect endpoint and returns the state token it
// embedded in the authorization URL.
func (e *env) startRedirect(t *testing.T) string {
	t.Helper()
	rec := e.do(http.MethodGet, "/auth/oauth/redirect", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("redirect returned %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		RedirectURI string `json:"redirect_uri"`
	}
	decodeJSON(t, rec, &body)

	parsed, err := url.Parse(body.RedirectURI)
	if err != nil {
		t.Fatalf("parse redirect_uri: %v", err)
	}
	state := parsed.Query().Get("state")
	if state == "" {
		t.Fatalf("redirect_uri has no state: %s", body.RedirectURI)
	}
	return state
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestRedirectIssuesStateWithoutProviderCalls(t *testing.T) {
	e := newTestEnv(t)

	state := e.startRedirect(t)
	if got := e.startRedirect(t); got == state {
		t.Error("expected a fresh state per redirect")
	}

	if n := e.provider.tokenCalls.Load(); n != 0 {
		t.Errorf("redirect must not call the token endpoint, got %d calls", n)
	}
	if n := e.provider.userInfoCalls.Load(); n != 0 {
		t.Errorf("redirect must not call the user-info endpoint, got %d calls", n)
	}
}

func TestCallbackMissingCode(t *testing.T) {
	e := newTestEnv(t)
	state := e.startRedirect(t)

	rec := e.do(http.MethodGet, "/auth/oauth/callback?state="+state, "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rec, &body)
	if body.Error != "Authorization code is missing" {
		t.Errorf("unexpected error message %q", body.Error)
	}

	if n := e.provider.tokenCalls.Load() + e.provider.userInfoCalls.Load(); n != 0 {
		t.Errorf("missing code must short-circuit before any provider call, got %d", n)
	}
}

func TestCallbackUnknownState(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodGet, "/auth/oauth/callback?code=abc123&state=forged", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Invalid or expired state") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	if n := e.provider.tokenCalls.Load(); n != 0 {
		t.Errorf("forged state must not reach the token endpoint, got %d calls", n)
	}
}

func TestCallbackStateIsOneShot(t *testing.T) {
	e := newTestEnv(t)
	state := e.startRedirect(t)

	first := e.do(http.MethodGet, "/auth/oauth/callback?code=abc123&state="+state, "", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first callback returned %d: %s", first.Code, first.Body.String())
	}

	replay := e.do(http.MethodGet, "/auth/oauth/callback?code=abc123&state="+state, "", nil)
	if replay.Code != http.StatusBadRequest {
		t.Fatalf("replayed state must be rejected, got %d", replay.Code)
	}
}

func TestCallbackHappyPathRelaysSuccess(t *testing.T) {
	e := newTestEnv(t)
	state := e.startRedirect(t)

	rec := e.do(http.MethodGet, "/auth/oauth/callback?code=abc123&state="+state, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("callback returned %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected html relay page, got content type %q", ct)
	}

	html := rec.Body.String()
	for _, want := range []string{"AUTH_SUCCESS", "a@b.com", frontendOrigin, "window.opener.postMessage"} {
		if !strings.Contains(html, want) {
			t.Errorf("relay page missing %q:\n%s", want, html)
		}
	}

	if n := e.provider.tokenCalls.Load(); n != 1 {
		t.Errorf("expected exactly one token exchange, got %d", n)
	}
	if n := e.provider.userInfoCalls.Load(); n != 1 {
		t.Errorf("expected exactly one user-info fetch, got %d", n)
	}
}

func TestCallbackEmptyTokenRelaysError(t *testing.T) {
	e := newTestEnv(t)
	e.provider.tokenBody = `{"token_type":"Bearer"}`
	state := e.startRedirect(t)

	rec := e.do(http.MethodGet, "/auth/oauth/callback?code=abc123&state="+state, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("callback returned %d: %s", rec.Code, rec.Body.String())
	}

	html := rec.Body.String()
	if !strings.Contains(html, "AUTH_ERROR") {
		t.Errorf("expected AUTH_ERROR relay:\n%s", html)
	}
	if !strings.Contains(html, "Failed to authenticate") {
		t.Errorf("expected generic failure message:\n%s", html)
	}
	if strings.Contains(html, "AUTH_SUCCESS") {
		t.Error("failed exchange must not relay success")
	}
	if n := e.provider.userInfoCalls.Load(); n != 0 {
		t.Errorf("no user-info fetch expected after failed exchange, got %d", n)
	}
	if e.users.Count() != 0 {
		t.Errorf("no user must be created on a failed handshake, got %d", e.users.Count())
	}
}

func TestOAuthLoginCreatesUserAndIssuesToken(t *testing.T) {
	e := newTestEnv(t)

	body := `{"oauthData":{"id":"ext1","email":"a@b.com","name":"A B"}}`
	rec := e.do(http.MethodPost, "/auth/oauth-login", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("oauth-login returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID    string `json:"id"`
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"user"`
	}
	decodeJSON(t, rec, &resp)
	if resp.Token == "" {
		t.Fatal("expected a session token")
	}
	if resp.User.Email != "a@b.com" || resp.User.Name != "A B" {
		t.Errorf("unexpected user body: %+v", resp.User)
	}

	claims, err := e.sessions.Verify(resp.Token)
	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}
	if claims.UserID != resp.User.ID || claims.Email != "a@b.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	// A second login with the same provider identity reuses the record.
	again := e.do(http.MethodPost, "/auth/oauth-login", body, nil)
	if again.Code != http.StatusOK {
		t.Fatalf("repeat oauth-login returned %d", again.Code)
	}
	var repeat struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decodeJSON(t, again, &repeat)
	if repeat.User.ID != resp.User.ID {
		t.Errorf("expected the same user, got %q and %q", resp.User.ID, repeat.User.ID)
	}
	if e.users.Count() != 1 {
		t.Errorf("expected exactly one user record, got %d", e.users.Count())
	}
}

func TestOAuthLoginRejectsIncompleteProfile(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/auth/oauth-login", `{"oauthData":{"email":"a@b.com"}}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if e.users.Count() != 0 {
		t.Errorf("no user must be created from an incomplete profile, got %d", e.users.Count())
	}
}

func TestRegisterAndLogin(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/auth/register", `{"email":"a@b.com","password":"hunter22","name":"A B"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", rec.Code, rec.Body.String())
	}

	dup := e.do(http.MethodPost, "/auth/register", `{"email":"a@b.com","password":"hunter22","name":"A B"}`, nil)
	if dup.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register returned %d", dup.Code)
	}
	if !strings.Contains(dup.Body.String(), "User already exists") {
		t.Errorf("unexpected duplicate body %q", dup.Body.String())
	}

	ok := e.do(http.MethodPost, "/auth/login", `{"email":"a@b.com","password":"hunter22"}`, nil)
	if ok.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", ok.Code, ok.Body.String())
	}

	bad := e.do(http.MethodPost, "/auth/login", `{"email":"a@b.com","password":"wrong"}`, nil)
	if bad.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password returned %d", bad.Code)
	}
	if !strings.Contains(bad.Body.String(), "Invalid credentials") {
		t.Errorf("unexpected body %q", bad.Body.String())
	}

	missing := e.do(http.MethodPost, "/auth/login", `{"email":"nobody@b.com","password":"hunter22"}`, nil)
	if missing.Code != http.StatusUnauthorized {
		t.Fatalf("unknown email returned %d", missing.Code)
	}
}

func TestLoginRejectsOAuthOnlyAccounts(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/auth/oauth-login", `{"oauthData":{"id":"ext1","email":"a@b.com","name":"A B"}}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("oauth-login returned %d", rec.Code)
	}

	login := e.do(http.MethodPost, "/auth/login", `{"email":"a@b.com","password":"anything1"}`, nil)
	if login.Code != http.StatusUnauthorized {
		t.Fatalf("password login on oauth-only account returned %d", login.Code)
	}
}

func TestVerifyRotatesToken(t *testing.T) {
	e := newTestEnv(t)

	reg := e.do(http.MethodPost, "/auth/register", `{"email":"a@b.com","password":"hunter22","name":"A B"}`, nil)
	if reg.Code != http.StatusCreated {
		t.Fatalf("register returned %d", reg.Code)
	}
	var created struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decodeJSON(t, reg, &created)

	header := http.Header{"Authorization": {"Bearer " + created.Token}}
	rec := e.do(http.MethodGet, "/auth/verify", "", header)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify returned %d: %s", rec.Code, rec.Body.String())
	}

	var verified struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decodeJSON(t, rec, &verified)
	if verified.User.ID != created.User.ID {
		t.Errorf("verify returned a different user: %q vs %q", verified.User.ID, created.User.ID)
	}
	if _, err := e.sessions.Verify(verified.Token); err != nil {
		t.Errorf("rotated token failed verification: %v", err)
	}
}

func TestVerifyWithoutToken(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodGet, "/auth/verify", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	e := newTestEnv(t)

	// Same secret, lifetime already elapsed at issuance.
	expiredIssuer, err := session.NewService(session.Config{Secret: "test-secret", TTL: -time.Hour})
	if err != nil {
		t.Fatalf("session service: %v", err)
	}
	token, err := expiredIssuer.Issue("user-1", "a@b.com")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	header := http.Header{"Authorization": {"Bearer " + token}}
	rec := e.do(http.MethodGet, "/auth/verify", "", header)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Token expired") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestVerifyGarbageToken(t *testing.T) {
	e := newTestEnv(t)

	header := http.Header{"Authorization": {"Bearer not-a-token"}}
	rec := e.do(http.MethodGet, "/auth/verify", "", header)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid token") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestVerifyUnknownUser(t *testing.T) {
	e := newTestEnv(t)

	// A structurally valid token whose subject was never stored.
	token, err := e.sessions.Issue("ghost-id", "ghost@b.com")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	header := http.Header{"Authorization": {"Bearer " + token}}
	rec := e.do(http.MethodGet, "/auth/verify", "", header)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "User not found") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}
