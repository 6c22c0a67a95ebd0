package pipeline

import (
	"context"

	"github.com/signupassist/provider-pipeline/internal/cdp"
	"github.com/signupassist/provider-pipeline/internal/stealth"
)

// NewStealthSessions adapts the stealth factory to the Sessions interface
// the discovery flow consumes.
func NewStealthSessions(factory *stealth.Factory[*cdp.Client]) Sessions {
	return stealthSessions{factory: factory}
}

type stealthSessions struct {
	factory *stealth.Factory[*cdp.Client]
}

func (s stealthSessions) NewSession(ctx context.Context, orgRef string) (Session, error) {
	session, err := s.factory.NewSession(ctx, stealth.SessionOptions{OrgRef: orgRef})
	if err != nil {
		return nil, err
	}
	return stealthSession{inner: session}, nil
}

type stealthSession struct {
	inner *stealth.Session[*cdp.Client]
}

func (s stealthSession) Page() Page {
	return s.inner.Page
}

func (s stealthSession) Close(ctx context.Context) error {
	return s.inner.Close(ctx)
}
