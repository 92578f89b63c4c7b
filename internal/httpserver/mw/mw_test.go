package mw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/keeper/internal/auth"
	"github.com/MrSnakeDoc/keeper/internal/domain"
	"github.com/MrSnakeDoc/keeper/internal/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestMatchHost(t *testing.T) {
	tests := []struct {
		host, pattern string
		want          bool
	}{
		{"keeper.domain.ext", "keeper.domain.ext", true},
		{"api.domain.ext", "*.domain.ext", true},
		{"a.b.domain.ext", "*.domain.ext", true},
		{"domain.ext", "*.domain.ext", false},
		{"evildomain.ext", "*.domain.ext", false},
		{"keeper.domain.ext", "other.domain.ext", false},
	}
	for _, tt := range tests {
		if got := matchHost(tt.host, tt.pattern); got != tt.want {
			t.Errorf("matchHost(%q, %q) = %v, want %v", tt.host, tt.pattern, got, tt.want)
		}
	}
}

func TestEnforceHostIgnoresPortAndCase(t *testing.T) {
	h := EnforceHost([]string{"Keeper.Domain.Ext"}, logger.Nop())(okHandler)

	r := httptest.NewRequest(http.MethodGet, "/infra", nil)
	r.Host = "keeper.domain.ext:8080"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	r.Host = "other.ext"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		remoteAddr string
		xff        string
		trustProxy bool
		want       int
	}{
		{name: "passthrough", allowed: nil, remoteAddr: "203.0.113.1:1", want: http.StatusOK},
		{name: "allowed cidr", allowed: []string{"10.0.0.0/8"}, remoteAddr: "10.2.3.4:1", want: http.StatusOK},
		{name: "rejected", allowed: []string{"10.0.0.0/8"}, remoteAddr: "203.0.113.1:1", want: http.StatusForbidden},
		{name: "proxy header trusted", allowed: []string{"10.0.0.0/8"}, remoteAddr: "127.0.0.1:1", xff: "10.9.9.9", trustProxy: true, want: http.StatusOK},
		{name: "proxy header untrusted", allowed: []string{"10.0.0.0/8"}, remoteAddr: "127.0.0.1:1", xff: "10.9.9.9", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := AllowOnlyCIDRS(tt.allowed, tt.trustProxy, logger.Nop())(okHandler)
			r := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (domain.Session, error) {
	if token != "good" {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	return domain.Session{User: &domain.User{ID: "u1"}, Token: token}, nil
}

func TestRequireSession(t *testing.T) {
	var seen string
	h := RequireSession(stubVerifier{}, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := auth.CurrentUser(r.Context()); u != nil {
			seen = u.ID
		}
	}))

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{name: "bearer", header: "Bearer good", want: http.StatusOK},
		{name: "lowercase scheme", header: "bearer good", want: http.StatusOK},
		{name: "query token", query: "?access_token=good", want: http.StatusOK},
		{name: "bad token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "basic auth", header: "Basic Z29vZA==", want: http.StatusUnauthorized},
		{name: "missing", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			r := httptest.NewRequest(http.MethodGet, "/api/views"+tt.query, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK && seen != "u1" {
				t.Errorf("handler saw user %q, want u1", seen)
			}
		})
	}
}

func TestRateLimitByIP(t *testing.T) {
	h := RateLimit(RateLimitConfig{Burst: 2, RefillPerMin: 1})(okHandler)

	do := func(ip string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		r.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("203.0.113.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}

	rec := do("203.0.113.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	if rec := do("203.0.113.2"); rec.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rec.Code)
	}
}

func TestLimiterSweepsIdleVisitors(t *testing.T) {
	l := newLimiter(RateLimitConfig{Burst: 1, RefillPerMin: 1, IdleTTL: time.Minute, SweepInterval: time.Second})
	start := time.Now()

	l.allow("a", start)
	l.allow("b", start.Add(90*time.Second))

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.visitors["a"]; ok {
		t.Error("idle visitor a should have been swept")
	}
	if _, ok := l.visitors["b"]; !ok {
		t.Error("visitor b should be kept")
	}
}

func TestLogRecordsUser(t *testing.T) {
	var got string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		noteUser(r, "u42")
		ru := r.Context().Value(requestUserKey{}).(*requestUser)
		got = ru.id
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	Log(logger.Nop())(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got != "u42" {
		t.Errorf("request user = %q, want u42", got)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
}
