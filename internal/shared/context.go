package shared

import "context"

type actorContextKey struct{}

// ContextWithActor stores the acting user's id in context. Route handlers
// set it; the ledger stamps createdBy/postedBy from it when an explicit
// actor is not supplied.
func ContextWithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actorID)
}

// ActorFromContext extracts the acting user's id, or "" when absent.
func ActorFromContext(ctx context.Context) string {
	actorID, _ := ctx.Value(actorContextKey{}).(string)
	return actorID
}
