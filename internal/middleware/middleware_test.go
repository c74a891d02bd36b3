package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/sre-portfolio/notetrack/internal/config"
	"github.com/sre-portfolio/notetrack/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubValidator struct {
	claims *service.Claims
	err    error
}

func (v stubValidator) ValidateAccessToken(string) (*service.Claims, error) {
	return v.claims, v.err
}

func authRouter(v TokenValidator) *gin.Engine {
	r := gin.New()
	r.Use(Auth(v))
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c)+"|"+GetUserEmail(c))
	})
	return r
}

func TestAuth(t *testing.T) {
	valid := stubValidator{claims: &service.Claims{UserID: "u1", Email: "a@example.com"}}

	tests := []struct {
		name      string
		validator TokenValidator
		header    string
		status    int
		body      string
	}{
		{"missing header", valid, "", http.StatusUnauthorized, "missing or malformed"},
		{"wrong scheme", valid, "Basic abc", http.StatusUnauthorized, "missing or malformed"},
		{"expired", stubValidator{err: service.ErrTokenExpired}, "Bearer abc", http.StatusUnauthorized, "token expired"},
		{"invalid", stubValidator{err: service.ErrInvalidToken}, "Bearer abc", http.StatusUnauthorized, "invalid token"},
		{"valid", valid, "bearer abc", http.StatusOK, "u1|a@example.com"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			authRouter(tc.validator).ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		preflight   bool
		code        int
		allowOrigin string
		credentials string
		methods     bool
	}{
		{"listed origin preflight", []string{"https://app.example"}, http.MethodOptions, "https://app.example", true, http.StatusNoContent, "https://app.example", "true", true},
		{"listed origin request", []string{"https://app.example"}, http.MethodGet, "https://app.example", false, http.StatusOK, "https://app.example", "true", false},
		{"unlisted origin", []string{"https://app.example"}, http.MethodGet, "https://evil.example", false, http.StatusOK, "", "", false},
		{"wildcard", []string{"*"}, http.MethodOptions, "https://any.example", true, http.StatusNoContent, "*", "", true},
		{"listed beats wildcard", []string{"*", "https://app.example"}, http.MethodGet, "https://app.example", false, http.StatusOK, "https://app.example", "true", false},
		{"no origin", []string{"*"}, http.MethodGet, "", false, http.StatusOK, "", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(config.CORSConfig{AllowedOrigins: tc.allowed}))
			r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(tc.method, "/", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.code, w.Code)
			assert.Equal(t, tc.allowOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tc.credentials, w.Header().Get("Access-Control-Allow-Credentials"))
			assert.Equal(t, tc.methods, w.Header().Get("Access-Control-Allow-Methods") != "")
			if tc.allowOrigin != "" {
				assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), RequestIDHeader)
			}
		})
	}
}
