package domain

import "context"

// Provider is the identity provider's session stream for one browser session.
// onChange receives nil when signed out. onError reports transport failures;
// callers must not treat an error as signed out.
type Provider interface {
	Subscribe(ctx context.Context, onChange func(*Principal), onError func(error)) (unsubscribe func(), err error)
	SignOut(ctx context.Context) error
}
