package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/hverma/enrollhub/internal/app/services"
	"github.com/hverma/enrollhub/internal/middleware"
	"github.com/hverma/enrollhub/internal/pkg/apperrors"
	"github.com/hverma/enrollhub/internal/pkg/googleauth"
)

const testFrontend = "http://localhost:5173"

type fakeExchanger struct {
	tokens *googleauth.Tokens
	err    error
}

func (f fakeExchanger) AuthCodeURL(state string) string {
	return "https://provider.example/auth?state=" + state
}

func (f fakeExchanger) ExchangeCode(ctx context.Context, code string) (*googleauth.Tokens, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens, nil
}

type fixedVerifier struct {
	identity string
	err      error
}

func (v fixedVerifier) ValidateIdentity(ctx context.Context, idToken string) (string, error) {
	if v.err != nil {
		return "", v.err
	}
	return v.identity, nil
}

func newOAuthTestRouter(exchanger CodeExchanger, verifier services.TokenVerifier) (*gin.Engine, *services.SessionService) {
	gin.SetMode(gin.TestMode)

	sessions := services.NewSessionService(
		services.NewMemorySessionStore(),
		verifier,
		services.SingleIdentityAuthorizer{Identity: "admin@example.com"},
	)
	controller := NewOAuthController(exchanger, sessions, testFrontend)

	router := gin.New()
	router.GET("/login", controller.Login)
	router.GET("/oauth2/callback", controller.Callback)
	router.POST("/signout", controller.Signout)
	return router, sessions
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginRedirectsToProvider(t *testing.T) {
	router, _ := newOAuthTestRouter(fakeExchanger{}, fixedVerifier{identity: "admin@example.com"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://provider.example/auth?state=" {
		t.Errorf("Location = %q", loc)
	}
}

func TestCallbackEstablishesSession(t *testing.T) {
	exchanger := fakeExchanger{tokens: &googleauth.Tokens{
		IDToken:      "id-token",
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
	}}
	router, sessions := newOAuthTestRouter(exchanger, fixedVerifier{identity: "admin@example.com"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth2/callback?code=abc", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != testFrontend+"/home" {
		t.Errorf("Location = %q, want frontend home", loc)
	}

	idCookie := cookieByName(rec, middleware.IDTokenCookie)
	if idCookie == nil {
		t.Fatal("id token cookie not set")
	}
	if !idCookie.HttpOnly {
		t.Error("id token cookie must be HttpOnly")
	}
	if idCookie.Value != "id-token" {
		t.Errorf("id token cookie = %q", idCookie.Value)
	}

	emailCookie := cookieByName(rec, middleware.EmailCookie)
	if emailCookie == nil {
		t.Fatal("email cookie not set")
	}
	if emailCookie.HttpOnly {
		t.Error("email cookie must be readable by the frontend")
	}
	if emailCookie.Value != "admin@example.com" {
		t.Errorf("email cookie = %q", emailCookie.Value)
	}

	if !sessions.HasActiveSession("admin@example.com") {
		t.Error("no session recorded after successful callback")
	}
}

func TestCallbackMissingCode(t *testing.T) {
	router, _ := newOAuthTestRouter(fakeExchanger{}, fixedVerifier{identity: "admin@example.com"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth2/callback", nil))

	if loc := rec.Header().Get("Location"); loc != testFrontend+"/?error=login_failed" {
		t.Errorf("Location = %q, want login_failed redirect", loc)
	}
}

func TestCallbackExchangeFailure(t *testing.T) {
	exchanger := fakeExchanger{err: apperrors.NewUpstreamError("token exchange failed", "invalid_grant")}
	router, _ := newOAuthTestRouter(exchanger, fixedVerifier{identity: "admin@example.com"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth2/callback?code=stale", nil))

	if loc := rec.Header().Get("Location"); loc != testFrontend+"/?error=login_failed" {
		t.Errorf("Location = %q, want login_failed redirect", loc)
	}
}

func TestCallbackRejectsUnknownIdentity(t *testing.T) {
	exchanger := fakeExchanger{tokens: &googleauth.Tokens{IDToken: "id-token"}}
	router, sessions := newOAuthTestRouter(exchanger, fixedVerifier{identity: "intruder@example.com"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth2/callback?code=abc", nil))

	if loc := rec.Header().Get("Location"); loc != testFrontend+"/?error=unauthorized" {
		t.Errorf("Location = %q, want unauthorized redirect", loc)
	}
	if sessions.HasActiveSession("intruder@example.com") {
		t.Error("session recorded for rejected identity")
	}
}

func TestCallbackDuplicateLogin(t *testing.T) {
	exchanger := fakeExchanger{tokens: &googleauth.Tokens{IDToken: "id-token"}}
	router, sessions := newOAuthTestRouter(exchanger, fixedVerifier{identity: "admin@example.com"})

	if err := sessions.Login("admin@example.com", services.SessionTokens{IDToken: "earlier"}); err != nil {
		t.Fatalf("seeding session: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth2/callback?code=abc", nil))

	if loc := rec.Header().Get("Location"); loc != testFrontend+"/?error=already_logged_in" {
		t.Errorf("Location = %q, want already_logged_in redirect", loc)
	}

	tokens, _ := sessions.ActiveTokens("admin@example.com")
	if tokens.IDToken != "earlier" {
		t.Errorf("stored tokens = %q, duplicate login must not replace them", tokens.IDToken)
	}
}

func TestSignoutClearsSessionAndCookies(t *testing.T) {
	router, sessions := newOAuthTestRouter(fakeExchanger{}, fixedVerifier{identity: "admin@example.com"})

	if err := sessions.Login("admin@example.com", services.SessionTokens{IDToken: "tok"}); err != nil {
		t.Fatalf("seeding session: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/signout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.EmailCookie, Value: "admin@example.com"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if sessions.HasActiveSession("admin@example.com") {
		t.Error("session survives signout")
	}

	for _, name := range []string{middleware.IDTokenCookie, middleware.EmailCookie} {
		cookie := cookieByName(rec, name)
		if cookie == nil {
			t.Errorf("cookie %s not expired on signout", name)
			continue
		}
		if cookie.MaxAge >= 0 {
			t.Errorf("cookie %s MaxAge = %d, want negative", name, cookie.MaxAge)
		}
	}
}

func TestSignoutWithoutSessionSucceeds(t *testing.T) {
	router, _ := newOAuthTestRouter(fakeExchanger{}, fixedVerifier{identity: "admin@example.com"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/signout", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
