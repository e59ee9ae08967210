package service

import (
	"context"
	"errors"

	"github.com/smallbiznis/streamgate/internal/changefeed"
	"github.com/smallbiznis/streamgate/internal/identity/domain"
	"go.uber.org/zap"
)

// sessionProvider streams the principal bound to one stored browser session.
type sessionProvider struct {
	svc *Service
	sid string
}

func (p *sessionProvider) Subscribe(ctx context.Context, onChange func(*domain.Principal), onError func(error)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	if p.sid == "" {
		go onChange(nil)
		return cancel, nil
	}

	changes, err := p.svc.feed.Subscribe(ctx, changefeed.IdentityTopic(p.sid))
	if err != nil {
		cancel()
		return nil, err
	}

	go func() {
		for {
			loadCtx, loadCancel := context.WithCancel(ctx)
			expiry := p.load(loadCtx, onChange, onError)
			select {
			case <-ctx.Done():
				loadCancel()
				return
			case _, ok := <-changes:
				loadCancel()
				if !ok {
					return
				}
			case <-expiry:
				loadCancel()
			}
		}
	}()
	return cancel, nil
}

// load reads the session once and returns a channel firing when it expires.
func (p *sessionProvider) load(ctx context.Context, onChange func(*domain.Principal), onError func(error)) <-chan struct{} {
	session, err := p.svc.repo.FindByID(ctx, p.sid)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			onChange(nil)
			return nil
		}
		if ctx.Err() == nil {
			onError(err)
		}
		return nil
	}

	now := p.svc.clock.Now()
	principal := session.Principal(now)
	onChange(principal)
	if principal == nil {
		return nil
	}

	fired := make(chan struct{})
	timer := p.svc.clock.After(session.ExpiresAt.Sub(now))
	go func() {
		select {
		case <-timer:
			close(fired)
		case <-ctx.Done():
		}
	}()
	return fired
}

func (p *sessionProvider) SignOut(ctx context.Context) error {
	if p.sid == "" {
		return nil
	}
	if err := p.svc.signOutSession(ctx, p.sid); err != nil {
		p.svc.log.Warn("sign out failed", zap.Error(err))
		return err
	}
	return nil
}
