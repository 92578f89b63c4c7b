// Package auth signs users in with Google and manages keeper session tokens.
// Session changes are broadcast to listeners registered with OnAuthChange.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/MrSnakeDoc/keeper/internal/domain"
	"github.com/MrSnakeDoc/keeper/internal/logger"
	"github.com/MrSnakeDoc/keeper/internal/utils"
)

const googleUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Config holds the OAuth client and token settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Secret       []byte        // HS256 signing key
	TokenTTL     time.Duration // session token lifetime
}

// EventKind is the kind of auth transition.
type EventKind int

const (
	SignedIn EventKind = iota + 1
	SignedOut
	TokenRefreshed
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case TokenRefreshed:
		return "token_refreshed"
	default:
		return "unknown"
	}
}

// Event is delivered to auth listeners. Session is the session that
// signed out, or the new one for SignedIn and TokenRefreshed.
type Event struct {
	Kind    EventKind
	Session domain.Session
}

// Listener reacts to auth transitions. It runs on the caller's goroutine.
type Listener func(Event)

// Provider is the auth collaborator.
type Provider struct {
	oauth       *oauth2.Config
	userinfoURL string
	tokens      *tokenIssuer
	revoked     RevocationStore
	logger      logger.Logger

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
}

func NewProvider(cfg Config, revoked RevocationStore, log logger.Logger) *Provider {
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userinfoURL: googleUserinfoURL,
		tokens:      &tokenIssuer{secret: cfg.Secret, ttl: cfg.TokenTTL, now: time.Now},
		revoked:     revoked,
		logger:      log,
		listeners:   make(map[int]Listener),
	}
}

// SignIn returns the Google consent URL carrying state.
func (p *Provider) SignIn(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type userinfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Callback exchanges the authorization code, resolves the Google account
// and issues a keeper session.
func (p *Provider) Callback(ctx context.Context, code string) (domain.Session, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: token exchange failed: %v", domain.ErrUnauthenticated, err)
	}

	info, err := p.fetchUserinfo(ctx, tok)
	if err != nil {
		return domain.Session{}, err
	}

	user := domain.User{
		ID:    domain.UserIDFromSubject("google", info.Subject),
		Email: info.Email,
		Name:  info.Name,
	}
	sess, err := p.tokens.issue(user)
	if err != nil {
		return domain.Session{}, err
	}

	p.logger.Info("user signed in", logger.UserID(user.ID))
	p.emit(Event{Kind: SignedIn, Session: sess})
	return sess, nil
}

func (p *Provider) fetchUserinfo(ctx context.Context, tok *oauth2.Token) (userinfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userinfoURL, nil)
	if err != nil {
		return userinfo{}, err
	}

	resp, err := p.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return userinfo{}, fmt.Errorf("userinfo request: %w", err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return userinfo{}, fmt.Errorf("%w: userinfo status %d", domain.ErrUnauthenticated, resp.StatusCode)
	}

	var info userinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return userinfo{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Subject == "" {
		return userinfo{}, fmt.Errorf("%w: userinfo without subject", domain.ErrUnauthenticated)
	}
	if info.Email != "" && !info.EmailVerified {
		return userinfo{}, fmt.Errorf("%w: email not verified", domain.ErrUnauthenticated)
	}
	return info, nil
}

// Verify validates a session token and checks it was not revoked.
func (p *Provider) Verify(ctx context.Context, token string) (domain.Session, error) {
	sess, err := p.tokens.parse(token)
	if err != nil {
		return domain.Session{}, err
	}

	revoked, err := p.revoked.IsRevoked(ctx, sess.TokenID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return domain.Session{}, fmt.Errorf("%w: token revoked", domain.ErrUnauthenticated)
	}
	return sess, nil
}

// Refresh issues a new token for the same user and revokes the old one.
func (p *Provider) Refresh(ctx context.Context, sess domain.Session) (domain.Session, error) {
	if !sess.Authenticated() {
		return domain.Session{}, domain.ErrUnauthenticated
	}

	next, err := p.tokens.issue(*sess.User)
	if err != nil {
		return domain.Session{}, err
	}
	if err := p.revoke(ctx, sess); err != nil {
		return domain.Session{}, err
	}

	p.logger.Debug("token refreshed", logger.UserID(next.UserID()))
	p.emit(Event{Kind: TokenRefreshed, Session: next})
	return next, nil
}

// SignOut revokes the session token and notifies listeners.
func (p *Provider) SignOut(ctx context.Context, sess domain.Session) error {
	if !sess.Authenticated() {
		return domain.ErrUnauthenticated
	}
	if err := p.revoke(ctx, sess); err != nil {
		return err
	}

	p.logger.Info("user signed out", logger.UserID(sess.UserID()))
	p.emit(Event{Kind: SignedOut, Session: sess})
	return nil
}

func (p *Provider) revoke(ctx context.Context, sess domain.Session) error {
	if sess.TokenID == "" {
		return nil
	}
	if err := p.revoked.Revoke(ctx, sess.TokenID, time.Until(sess.ExpiresAt)); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// OnAuthChange registers fn and returns its unsubscribe function.
// Calling the returned function more than once is harmless.
func (p *Provider) OnAuthChange(fn Listener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *Provider) emit(ev Event) {
	p.mu.Lock()
	fns := make([]Listener, 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
