package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func serveWithAuth(t *testing.T, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()
	var seen string
	h := JWTAuth(testSecret)(func(c echo.Context) error {
		seen = UserID(c)
		return c.NoContent(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/v1/rooms", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec, seen
}

func TestJWTAuthStoresSubject(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	cases := map[string]struct {
		claims jwt.MapClaims
		want   string
	}{
		"string subject":  {jwt.MapClaims{"sub": "user-42", "exp": exp}, "user-42"},
		"numeric subject": {jwt.MapClaims{"sub": 42, "exp": exp}, "42"},
		"user_id claim":   {jwt.MapClaims{"user_id": "u-7", "exp": exp}, "u-7"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			tok := sign(t, jwt.SigningMethodHS256, []byte(testSecret), tc.claims)
			rec, seen := serveWithAuth(t, "Bearer "+tok)
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tc.want, seen)
		})
	}
}

func TestJWTAuthRejects(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	cases := map[string]string{
		"no header":    "",
		"not bearer":   "Basic abc",
		"garbage":      "Bearer not-a-token",
		"wrong secret": "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "u", "exp": exp}),
		"expired":      "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Minute).Unix()}),
		"wrong method": "Bearer " + sign(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{"sub": "u", "exp": exp}),
		"missing sub":  "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"exp": exp}),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rec, seen := serveWithAuth(t, header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Empty(t, seen)
		})
	}
}
