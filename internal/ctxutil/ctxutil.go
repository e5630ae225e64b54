package ctxutil

import (
	"context"
	"time"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

type key int

const (
	keyActor key = iota
	keyOpName
	keyRunID
)

// WithActor / Actor carry the caller identity resolved by the session layer.
func WithActor(ctx context.Context, a models.Actor) context.Context {
	return context.WithValue(ctx, keyActor, a)
}

func Actor(ctx context.Context) (models.Actor, bool) {
	a, ok := ctx.Value(keyActor).(models.Actor)
	return a, ok
}

// WithOp / Op name the operation for logs.
func WithOp(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyOpName, name)
}

func Op(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(keyOpName).(string)
	return s, ok
}

// WithRunID / RunID tag a scheduled job run.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRunID, id)
}

func RunID(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(keyRunID).(string)
	return s, ok
}

var DefaultDBTimeout = 5 * time.Second

func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}

// WithDBTimeout caps a DB unit of work, keeping a shorter parent deadline.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok {
		if remain := time.Until(dl); remain < DefaultDBTimeout {
			return WithTimeout(parent, remain)
		}
	}
	return WithTimeout(parent, DefaultDBTimeout)
}
