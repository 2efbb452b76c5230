package queries

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/lectio/admin-console/internal/apiclient"
	"github.com/lectio/admin-console/internal/cache"
)

type (
	sessionKey struct{}
	actorKey   struct{}
)

// WithSession binds a request context to a backend session. Backend calls
// made with the returned context carry the token, and cached reads are
// kept in the session's own scope.
func WithSession(ctx context.Context, token string) context.Context {
	ctx = apiclient.WithSession(ctx, token)
	return context.WithValue(ctx, sessionKey{}, SessionScope(token))
}

// ScopeFrom returns the cache scope bound to ctx.
func ScopeFrom(ctx context.Context) string {
	if scope, ok := ctx.Value(sessionKey{}).(string); ok {
		return scope
	}
	return cache.Scope("")
}

// SessionScope names the cache namespace of a token. It is derived from the
// whole token, so only the exact credential the backend accepted can read
// what was cached for it. Claims are never trusted here.
func SessionScope(token string) string {
	if token == "" {
		return cache.Scope("")
	}
	sum := sha256.Sum256([]byte(token))
	return cache.Scope("t-" + hex.EncodeToString(sum[:]))
}

// WithActor records the id of the user the backend confirmed for this
// session. Mutations report it as their actor.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom returns the confirmed user id, or the session scope when the
// session was never checked.
func ActorFrom(ctx context.Context) string {
	if id, ok := ctx.Value(actorKey{}).(string); ok && id != "" {
		return id
	}
	return ScopeFrom(ctx)
}
