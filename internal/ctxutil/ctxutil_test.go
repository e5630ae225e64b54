package ctxutil

import (
	"context"
	"testing"
	"time"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

func TestActorRoundTrip(t *testing.T) {
	ctx := WithActor(context.Background(), models.Actor{ID: 4, Role: models.Admin})
	a, ok := Actor(ctx)
	if !ok || a.ID != 4 || a.Role != models.Admin {
		t.Fatalf("got %+v, %v", a, ok)
	}
	if _, ok := Actor(context.Background()); ok {
		t.Fatal("empty context returned an actor")
	}
}

func TestWithDBTimeout_KeepsShorterParent(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	ctx, cancel2 := WithDBTimeout(parent)
	defer cancel2()
	dl, ok := ctx.Deadline()
	if !ok || time.Until(dl) > 100*time.Millisecond {
		t.Fatalf("deadline %v not capped by parent", dl)
	}
}

func TestRunTags(t *testing.T) {
	ctx := WithOp(WithRunID(context.Background(), "r-1"), "lock_weeks")
	if id, ok := RunID(ctx); !ok || id != "r-1" {
		t.Fatalf("run id = %q, %v", id, ok)
	}
	if op, ok := Op(ctx); !ok || op != "lock_weeks" {
		t.Fatalf("op = %q, %v", op, ok)
	}
}
