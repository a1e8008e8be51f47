// Package actor identifies the registrar performing an action. The HTTP
// layer resolves the session into an Actor before any core operation runs;
// core operations reject a missing or zero actor instead of defaulting to a
// privileged account.
package actor

import (
	"context"
	"fmt"
)

// Actor represents the authenticated user performing an action.
type Actor struct {
	// ID is the registry user id
	ID int64 `json:"id"`

	// Name is the actor's display name
	Name string `json:"name"`

	// Role is the actor's role (optional, for audit display)
	Role string `json:"role,omitempty"`
}

// Valid reports whether the actor carries a usable identity.
func (a *Actor) Valid() bool {
	return a != nil && a.ID > 0
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "anonymous"
	}
	return fmt.Sprintf("%s (#%d)", a.Name, a.ID)
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context. The second return value
// reports whether an actor was present.
func FromContext(ctx context.Context) (*Actor, bool) {
	if ctx == nil {
		return nil, false
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	return a, ok
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}
