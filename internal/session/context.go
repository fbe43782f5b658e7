package session

import "context"

type contextKey int

const (
	storeKey contextKey = iota
)

// WithStore returns a context carrying s.
func WithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, storeKey, s)
}

// FromContext returns the request's session store, or nil.
func FromContext(ctx context.Context) *Store {
	s, _ := ctx.Value(storeKey).(*Store)
	return s
}

// IsAuthenticated returns true if the context carries an authenticated session.
func IsAuthenticated(ctx context.Context) bool {
	s := FromContext(ctx)
	return s != nil && s.State() == StateAuthenticated
}
