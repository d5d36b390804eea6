package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func signClaims(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestIssueAndParseToken(t *testing.T) {
	token, issued, err := IssueToken(testSecret, 42, "jana", "user")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.JTI)

	parsed, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), parsed.UserID)
	assert.Equal(t, "jana", parsed.Username)
	assert.Equal(t, "user", parsed.Role)
	assert.Equal(t, issued.JTI, parsed.JTI)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), parsed.ExpiresAt, time.Minute)
}

func TestIssueToken_RequiresSecret(t *testing.T) {
	_, _, err := IssueToken("", 1, "x", "user")
	assert.Error(t, err)
}

func TestParseToken_Rejects(t *testing.T) {
	now := time.Now()
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": strconv.Itoa(7),
			"iss": tokenIssuer,
			"aud": tokenAudience,
			"exp": now.Add(time.Hour).Unix(),
		}
	}

	tests := []struct {
		name  string
		token func() string
	}{
		{"empty", func() string { return "" }},
		{"malformed", func() string { return "malformed.token.here" }},
		{"wrong secret", func() string { return signClaims(t, base(), "other-secret") }},
		{"expired", func() string {
			c := base()
			c["exp"] = now.Add(-time.Hour).Unix()
			return signClaims(t, c, testSecret)
		}},
		{"missing exp", func() string {
			c := base()
			delete(c, "exp")
			return signClaims(t, c, testSecret)
		}},
		{"wrong issuer", func() string {
			c := base()
			c["iss"] = "someone-else"
			return signClaims(t, c, testSecret)
		}},
		{"wrong audience", func() string {
			c := base()
			c["aud"] = "someone-else"
			return signClaims(t, c, testSecret)
		}},
		{"non numeric subject", func() string {
			c := base()
			c["sub"] = "abc"
			return signClaims(t, c, testSecret)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(testSecret, tt.token())
			assert.Error(t, err)
		})
	}
}

func TestExtractToken(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(ExtractToken(c))
	})

	tests := []struct {
		name     string
		header   string
		cookie   string
		expected string
	}{
		{"bearer header", "Bearer abc", "", "abc"},
		{"lowercase scheme", "bearer abc", "", "abc"},
		{"basic auth ignored", "Basic dXNlcjpwYXNz", "cookie-token", ""},
		{"cookie fallback", "", "cookie-token", "cookie-token"},
		{"nothing", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(body))
		})
	}
}
