// Package actorcontext carries the authenticated actor through request
// contexts so services can enforce ownership rules without touching the
// transport layer.
package actorcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleStaff    Role = "STAFF"
	RoleCustomer Role = "CUSTOMER"
)

type Actor struct {
	ID       snowflake.ID
	Role     Role
	Username string
}

func (a Actor) IsStaff() bool { return a.Role == RoleStaff }

type contextKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(Actor)
	return actor, ok
}
