package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/smallbiznis/streamgate/internal/changefeed"
	"github.com/smallbiznis/streamgate/internal/clock"
	"github.com/smallbiznis/streamgate/internal/config"
	"github.com/smallbiznis/streamgate/internal/identity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	sessionTokenBytes = 32
	defaultSessionTTL = 7 * 24 * time.Hour
)

// TokenVerifier turns an identity-provider token into a principal.
type TokenVerifier interface {
	Verify(raw string) (*domain.Principal, error)
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Cfg      config.Config
	Repo     domain.Repository
	Verifier TokenVerifier
	Feed     changefeed.Feed
	Clock    clock.Clock
}

type Service struct {
	log        *zap.Logger
	repo       domain.Repository
	verifier   TokenVerifier
	feed       changefeed.Feed
	clock      clock.Clock
	sessionTTL time.Duration
}

func New(p Params) domain.Service {
	ttl := p.Cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Service{
		log:        p.Log.Named("identity.service"),
		repo:       p.Repo,
		verifier:   p.Verifier,
		feed:       p.Feed,
		clock:      p.Clock,
		sessionTTL: ttl,
	}
}

func (s *Service) SignIn(ctx context.Context, req domain.SignInRequest) (*domain.SignInResult, error) {
	principal, err := s.verifier.Verify(req.IDToken)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.sessionTTL)

	if current := strings.TrimSpace(req.CurrentToken); current != "" {
		sid := hashToken(current)
		existing, err := s.repo.FindByID(ctx, sid)
		switch {
		case err == nil && now.Before(existing.ExpiresAt):
			if err := s.repo.SignIn(ctx, sid, *principal, expiresAt, now); err != nil {
				return nil, err
			}
			s.publish(ctx, sid, changefeed.KindSignIn)
			return &domain.SignInResult{
				Principal: *principal,
				RawToken:  current,
				SessionID: sid,
				ExpiresAt: expiresAt,
			}, nil
		case err != nil && !errors.Is(err, domain.ErrSessionNotFound):
			return nil, err
		}
	}

	rawToken, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	session := &domain.Session{
		ID:          hashToken(rawToken),
		PrincipalID: &principal.ID,
		Roles:       domain.JoinRoles(principal.Roles),
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if principal.Email != "" {
		session.Email = &principal.Email
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.log.Info("session created", zap.String("principal_id", principal.ID))
	return &domain.SignInResult{
		Principal: *principal,
		RawToken:  rawToken,
		SessionID: session.ID,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) SignOut(ctx context.Context, rawToken string) error {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return domain.ErrInvalidSession
	}
	return s.signOutSession(ctx, hashToken(token))
}

func (s *Service) signOutSession(ctx context.Context, sid string) error {
	if err := s.repo.SignOut(ctx, sid, s.clock.Now()); err != nil {
		return err
	}
	s.publish(ctx, sid, changefeed.KindSignOut)
	return nil
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Principal, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	session, err := s.repo.FindByID(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	principal := session.Principal(s.clock.Now())
	if principal == nil {
		return nil, domain.ErrUnauthenticated
	}
	return principal, nil
}

func (s *Service) Provider(rawToken string) domain.Provider {
	token := strings.TrimSpace(rawToken)
	sid := ""
	if token != "" {
		sid = hashToken(token)
	}
	return &sessionProvider{svc: s, sid: sid}
}

func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("purged expired sessions", zap.Int64("count", n))
	}
	return n, nil
}

func (s *Service) publish(ctx context.Context, sid, kind string) {
	if err := s.feed.Publish(ctx, changefeed.NewChange(changefeed.IdentityTopic(sid), kind)); err != nil {
		s.log.Warn("publish identity change failed", zap.String("kind", kind), zap.Error(err))
	}
}

// SessionID derives the stored session id from a raw cookie token.
func SessionID(rawToken string) string {
	return hashToken(strings.TrimSpace(rawToken))
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
