package memory

import (
	"context"
	"testing"

	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) Fatal(context.Context, string, ...any) {}
func (l nopLogger) With(...any) domain.Logger           { return l }

func TestFavoritesBus_SynchronousFanOut(t *testing.T) {
	bus := NewFavoritesBus(nopLogger{})
	ctx := context.Background()

	var got []string
	bus.Subscribe(func(_ context.Context, ev domain.FavoritesEvent) { got = append(got, "a:"+ev.UserID) })
	unsub := bus.Subscribe(func(_ context.Context, ev domain.FavoritesEvent) { got = append(got, "b:"+ev.UserID) })

	bus.Publish(ctx, domain.FavoritesEvent{UserID: "u1"})
	if len(got) != 2 || got[0] != "a:u1" || got[1] != "b:u1" {
		t.Fatalf("expected both handlers before Publish returns, got %v", got)
	}

	unsub()
	unsub()
	bus.Publish(ctx, domain.FavoritesEvent{UserID: "u2"})
	if len(got) != 3 || got[2] != "a:u2" {
		t.Fatalf("expected only the remaining handler, got %v", got)
	}
	if bus.Len() != 1 {
		t.Errorf("expected 1 subscription, got %d", bus.Len())
	}
}

func TestFavoritesBus_PanicDoesNotStopDelivery(t *testing.T) {
	bus := NewFavoritesBus(nopLogger{})
	delivered := false
	bus.Subscribe(func(context.Context, domain.FavoritesEvent) { panic("boom") })
	bus.Subscribe(func(context.Context, domain.FavoritesEvent) { delivered = true })

	bus.Publish(context.Background(), domain.FavoritesEvent{UserID: "u1"})
	if !delivered {
		t.Error("handler after a panicking one must still run")
	}
}

func TestFavoritesBus_HandlersGetOwnItems(t *testing.T) {
	bus := NewFavoritesBus(nopLogger{})
	bus.Subscribe(func(_ context.Context, ev domain.FavoritesEvent) { ev.Items[0] = "mutated" })
	var seen string
	bus.Subscribe(func(_ context.Context, ev domain.FavoritesEvent) { seen = ev.Items[0] })

	items := []string{"p1"}
	bus.Publish(context.Background(), domain.FavoritesEvent{UserID: "u1", Items: items})
	if seen != "p1" || items[0] != "p1" {
		t.Errorf("handlers must not share the item slice, saw %q, publisher has %q", seen, items[0])
	}
}
