package deps

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/keeper/internal/bookmarks"
	"github.com/MrSnakeDoc/keeper/internal/domain"
	"github.com/MrSnakeDoc/keeper/internal/logger"
	"github.com/MrSnakeDoc/keeper/internal/session"
)

// Authenticator is the part of auth.Provider the handlers use.
type Authenticator interface {
	SignIn(state string) string
	Callback(ctx context.Context, code string) (domain.Session, error)
	Verify(ctx context.Context, token string) (domain.Session, error)
	Refresh(ctx context.Context, sess domain.Session) (domain.Session, error)
	SignOut(ctx context.Context, sess domain.Session) error
}

// Bookmarks is the part of bookmarks.Service the handlers use.
type Bookmarks interface {
	Import(ctx context.Context, userID string, drafts []domain.Draft) (bookmarks.ImportResult, error)
	Ping(ctx context.Context) error
}

// RevocationCounter reports how many session tokens are revoked.
type RevocationCounter interface {
	RevokedCount(ctx context.Context) (int, error)
}

type Deps struct {
	Logger          logger.Logger
	StartTime       time.Time
	Version         string
	Commit          string
	BuildDate       string
	GoVersion       string
	TimeNow         func() time.Time  // for testing, defaults to time.Now
	AllowedOrigins  []string          // CORS origins for the dashboard
	AllowedHosts    []string          // Host headers allowed on ops endpoints
	AllowedCIDRS    []string          // IPs allowed on ops endpoints
	TrustProxy      bool              // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RateLimitBurst  int               // per client burst on write endpoints
	RateLimitPerMin int               // per client refill on write endpoints
	RedisClient     *redis.Client     // change feed and revocation store
	Revocations     RevocationCounter // revoked session tokens, reported by /infra
	Backend         string            // "postgres" | "supabase", reported by /infra
	Views           *session.Manager  // mounted views
	Auth            Authenticator
	Bookmarks       Bookmarks
	ImportTrigger   chan struct{}     // manual trigger for the scheduled import (nil if disabled)
	RequestTimeout  time.Duration     // per request timeout, streaming endpoints excluded
	Heartbeat       time.Duration     // SSE keep-alive interval
}
