package application

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"gitlab.com/timkado/api/storefront-access-service/benchmarks/mocks"
	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/memory"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
	"gitlab.com/timkado/api/storefront-access-service/pkg/storagekeys"
)

type recordingPrompter struct {
	reasons []string
}

func (p *recordingPrompter) RequestAuth(_ context.Context, reason string) {
	p.reasons = append(p.reasons, reason)
}

type favoritesFixture struct {
	api      *mocks.MockFavoritesAPI
	identity *mocks.MockIdentitySource
	bus      *memory.FavoritesBus
	store    *mocks.MockKeyValueStore
	cache    *TTLCache
	prompter *recordingPrompter
	logger   *mocks.MockLogger
}

func newFavoritesFixture(t *testing.T) *favoritesFixture {
	t.Helper()
	store := mocks.NewMockKeyValueStore()
	logger := mocks.NewMockLogger()
	return &favoritesFixture{
		api:      mocks.NewMockFavoritesAPI(),
		identity: mocks.NewMockIdentitySource(),
		bus:      memory.NewFavoritesBus(logger),
		store:    store,
		cache:    NewTTLCache(store, mocks.NewMockClock(), logger, "", 0),
		prompter: &recordingPrompter{},
		logger:   logger,
	}
}

func (f *favoritesFixture) newSync(t *testing.T) *FavoritesSynchronizer {
	t.Helper()
	s := NewFavoritesSynchronizer(f.api, f.identity, f.bus, f.cache, f.prompter, f.logger, "instance-a")
	t.Cleanup(s.Close)
	return s
}

func assertState(t *testing.T, s *FavoritesSynchronizer, want ...string) {
	t.Helper()
	st := s.State()
	if want == nil {
		want = []string{}
	}
	if !reflect.DeepEqual(st.Items, want) {
		t.Fatalf("items = %v, want %v", st.Items, want)
	}
	if st.Count != len(st.Items) {
		t.Fatalf("count %d does not match %d items", st.Count, len(st.Items))
	}
}

func TestFavorites_UnauthenticatedMutationPromptsAuth(t *testing.T) {
	f := newFavoritesFixture(t)
	s := f.newSync(t)
	ctx := context.Background()

	if s.AddToFavorites(ctx, "p1") {
		t.Fatal("expected add to fail without identity")
	}
	if !s.AuthPromptPending() {
		t.Error("expected auth prompt to be pending")
	}
	if len(f.prompter.reasons) != 1 {
		t.Errorf("expected prompter to be notified once, got %v", f.prompter.reasons)
	}
	if f.api.Calls() != 0 {
		t.Error("unauthenticated mutation must not call the API")
	}
	assertState(t, s)

	s.DismissAuthPrompt()
	if s.AuthPromptPending() {
		t.Error("expected prompt dismissed")
	}
}

func TestFavorites_AuthoritativeAdoption(t *testing.T) {
	f := newFavoritesFixture(t)
	s := f.newSync(t)
	ctx := context.Background()
	f.identity.Set(domain.Identity{UserID: "u1"})
	f.api.Seed("u1", "p1")

	s.Load(ctx)
	assertState(t, s, "p1")

	if !s.AddToFavorites(ctx, "p2") {
		t.Fatal("add failed")
	}
	assertState(t, s, "p1", "p2")

	// The server appends blindly; the adopted state must still be a set.
	if !s.AddToFavorites(ctx, "p1") {
		t.Fatal("add failed")
	}
	assertState(t, s, "p1", "p2")

	if !s.ToggleFavorite(ctx, "p2") {
		t.Fatal("toggle failed")
	}
	assertState(t, s, "p1")
	if !s.ToggleFavorite(ctx, "p3") {
		t.Fatal("toggle failed")
	}
	assertState(t, s, "p1", "p3")
	if !s.IsFavorite("p3") || s.IsFavorite("p2") {
		t.Error("IsFavorite disagrees with state")
	}

	if !s.ClearFavorites(ctx) {
		t.Fatal("clear failed")
	}
	assertState(t, s)

	if _, ok := f.store.Raw(storagekeys.Favorites("u1")); !ok {
		t.Error("expected favorites to be persisted under the owner key")
	}
}

func TestFavorites_MutationFailureKeepsState(t *testing.T) {
	f := newFavoritesFixture(t)
	s := f.newSync(t)
	ctx := context.Background()
	f.identity.Set(domain.Identity{UserID: "u1"})
	f.api.Seed("u1", "p1")
	s.Load(ctx)

	f.api.SetErr(errors.New("502 bad gateway"))
	if s.AddToFavorites(ctx, "p2") {
		t.Fatal("expected failure")
	}
	if s.RemoveFromFavorites(ctx, "p1") {
		t.Fatal("expected failure")
	}
	assertState(t, s, "p1")
}

func TestFavorites_IdentitySwitchResets(t *testing.T) {
	f := newFavoritesFixture(t)
	s := f.newSync(t)
	ctx := context.Background()

	f.identity.Set(domain.Identity{UserID: "u1"})
	f.api.Seed("u1", "a", "b")
	s.Load(ctx)
	assertState(t, s, "a", "b")

	// The second user's list cannot be loaded: nothing of the first user may leak through.
	f.identity.Set(domain.Identity{UserID: "u2"})
	f.api.SetErr(errors.New("timeout"))
	s.Load(ctx)
	assertState(t, s)
	if s.Owner() != "u2" {
		t.Errorf("expected owner u2, got %s", s.Owner())
	}

	// Logout goes back to an empty guest state without a network call.
	f.api.SetErr(nil)
	calls := f.api.Calls()
	f.identity.Set(domain.Identity{})
	s.Load(ctx)
	assertState(t, s)
	if s.Owner() != domain.GuestOwner {
		t.Errorf("expected guest owner, got %s", s.Owner())
	}
	if f.api.Calls() != calls {
		t.Error("guest load must not call the API")
	}
}

func TestFavorites_CrossInstanceBroadcast(t *testing.T) {
	f := newFavoritesFixture(t)
	ctx := context.Background()
	f.identity.Set(domain.Identity{UserID: "u1"})

	header := f.newSync(t)
	grid := f.newSync(t)
	header.Load(ctx)
	grid.Load(ctx)

	other := mocks.NewMockIdentitySource()
	other.Set(domain.Identity{UserID: "u2"})
	stranger := NewFavoritesSynchronizer(f.api, other, f.bus, f.cache, nil, f.logger, "instance-a")
	t.Cleanup(stranger.Close)
	stranger.Load(ctx)

	var events []domain.FavoritesEvent
	f.bus.Subscribe(func(_ context.Context, ev domain.FavoritesEvent) { events = append(events, ev) })

	calls := f.api.Calls()
	if !header.AddToFavorites(ctx, "p9") {
		t.Fatal("add failed")
	}
	if got := f.api.Calls() - calls; got != 1 {
		t.Errorf("expected only the publishing instance to call the API, got %d calls", got)
	}

	assertState(t, grid, "p9")
	assertState(t, stranger)
	if len(events) != 1 || events[0].UserID != "u1" || events[0].Origin != "instance-a" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestFavorites_CloseStopsAdoption(t *testing.T) {
	f := newFavoritesFixture(t)
	ctx := context.Background()
	f.identity.Set(domain.Identity{UserID: "u1"})

	s := f.newSync(t)
	s.Load(ctx)
	s.Close()

	f.bus.Publish(ctx, domain.FavoritesEvent{UserID: "u1", Items: []string{"x"}})
	assertState(t, s)
}

// switchingFavoritesAPI runs beforeAdd while the add call is still in flight.
type switchingFavoritesAPI struct {
	*mocks.MockFavoritesAPI
	beforeAdd func()
}

func (a *switchingFavoritesAPI) AddFavorite(ctx context.Context, identity domain.Identity, productID string) ([]string, error) {
	if a.beforeAdd != nil {
		a.beforeAdd()
		a.beforeAdd = nil
	}
	return a.MockFavoritesAPI.AddFavorite(ctx, identity, productID)
}

func TestFavorites_IdentitySwitchDuringMutation(t *testing.T) {
	f := newFavoritesFixture(t)
	ctx := context.Background()
	f.identity.Set(domain.Identity{UserID: "a"})
	f.api.Seed("a", "a1")

	api := &switchingFavoritesAPI{MockFavoritesAPI: f.api}
	s := NewFavoritesSynchronizer(api, f.identity, f.bus, f.cache, f.prompter, f.logger, "instance-a")
	t.Cleanup(s.Close)
	s.Load(ctx)

	var events []domain.FavoritesEvent
	f.bus.Subscribe(func(_ context.Context, ev domain.FavoritesEvent) { events = append(events, ev) })

	api.beforeAdd = func() {
		f.identity.Set(domain.Identity{UserID: "b"})
		s.Load(ctx)
	}
	if !s.AddToFavorites(ctx, "a2") {
		t.Fatal("add failed")
	}

	if s.Owner() != "b" {
		t.Fatalf("late answer must not take the owner back, owner = %s", s.Owner())
	}
	assertState(t, s)

	if _, ok := f.store.Raw(storagekeys.Favorites("a")); !ok {
		t.Error("expected the answer to be persisted for the previous owner")
	}
	if len(events) != 1 || events[0].UserID != "a" || !reflect.DeepEqual(events[0].Items, []string{"a1", "a2"}) {
		t.Fatalf("expected one broadcast for the previous owner, got %+v", events)
	}

	// Broadcasts for the previous owner are no longer adopted.
	f.bus.Publish(ctx, domain.FavoritesEvent{UserID: "a", Items: []string{"x"}, Origin: "instance-b"})
	assertState(t, s)
}
