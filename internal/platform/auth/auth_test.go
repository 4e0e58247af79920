package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "test-secret", Issuer: "fitness.test"}

func TestIssueAndParseRoundTrip(t *testing.T) {
	issuer := NewIssuer(testConfig, time.Hour)

	token, expiresAt, err := issuer.Issue("user-1", []string{"goals:read", "goals:write"})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.True(t, claims.HasScope("goals:write"))
	require.True(t, claims.HasAnyScope("activities:read", "goals:read"))
	require.False(t, claims.HasScope("activities:write"))
}

func TestParseRejectsForeignSecretAndIssuer(t *testing.T) {
	token, _, err := NewIssuer(testConfig, time.Hour).Issue("user-1", nil)
	require.NoError(t, err)

	_, err = Parse(token, Config{Secret: "other-secret", Issuer: testConfig.Issuer})
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = Parse(token, Config{Secret: testConfig.Secret, Issuer: "someone-else"})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	issuer := NewIssuer(testConfig, time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := issuer.Issue("user-1", nil)
	require.NoError(t, err)

	_, err = Parse(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseEmptyToken(t *testing.T) {
	_, err := Parse("  ", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestIssueWithoutSecret(t *testing.T) {
	_, _, err := NewIssuer(Config{}, time.Hour).Issue("user-1", nil)
	require.ErrorIs(t, err, ErrMissingSecret)
}

func TestScopeSet(t *testing.T) {
	require.Len(t, scopeSet("a b  c"), 3)
	require.Len(t, scopeSet(" a a "), 1)
	require.Empty(t, scopeSet(""))
}

func TestBearerToken(t *testing.T) {
	token, err := bearerToken("bearer abc ")
	require.NoError(t, err)
	require.Equal(t, "abc", token)

	_, err = bearerToken("Bearer")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = bearerToken("")
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestMiddlewareWrap(t *testing.T) {
	token, _, err := NewIssuer(testConfig, time.Hour).Issue("user-42", []string{"goals:read"})
	require.NoError(t, err)

	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	mw := NewMiddleware(testConfig, func(r *http.Request) bool { return r.URL.Path == "/healthz" })
	handler := mw.Wrap(next)

	cases := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{name: "skipped path", path: "/healthz", status: http.StatusNoContent},
		{name: "missing header", path: "/v1/goals", status: http.StatusUnauthorized},
		{name: "wrong scheme", path: "/v1/goals", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "garbage token", path: "/v1/goals", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "valid token", path: "/v1/goals", header: "Bearer " + token, status: http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			require.Equal(t, tc.status, rr.Code)
		})
	}

	require.NotNil(t, seen)
	require.Equal(t, "user-42", seen.Subject)
}
