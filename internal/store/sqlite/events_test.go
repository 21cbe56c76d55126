package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pulsetrace/pulsetrace/internal/models"
	"github.com/pulsetrace/pulsetrace/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

var (
	tenantA = models.TenantContext{OrganizationID: "org-a", ProjectID: "proj-a"}
	tenantB = models.TenantContext{OrganizationID: "org-b", ProjectID: "proj-b"}
)

func testEvent(tc models.TenantContext, eventID, userID, name string, ts time.Time) models.Event {
	return models.Event{
		EventID:        eventID,
		UserID:         userID,
		EventName:      name,
		Properties:     map[string]any{"source": "test"},
		Timestamp:      ts,
		OrganizationID: tc.OrganizationID,
		ProjectID:      tc.ProjectID,
	}
}

func mustInsert(t *testing.T, st *Store, events ...models.Event) []store.InsertOutcome {
	t.Helper()
	outcomes, err := st.InsertMany(context.Background(), events)
	if err != nil {
		t.Fatalf("InsertMany: %v", err)
	}
	return outcomes
}

func TestInsertMany_Dedupe(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	out := mustInsert(t, st, testEvent(tenantA, "evt_1", "u1", "signup", now))
	if !out[0].Inserted {
		t.Error("first insert should report inserted=true")
	}

	// Same identity again: dropped, not overwritten, no error.
	out = mustInsert(t, st, testEvent(tenantA, "evt_1", "u2", "login", now))
	if out[0].Inserted {
		t.Error("duplicate insert should report inserted=false")
	}

	ev, err := st.FindOne(ctx, tenantA, "evt_1")
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if ev.UserID != "u1" || ev.EventName != "signup" {
		t.Errorf("first writer must win, got user=%q name=%q", ev.UserID, ev.EventName)
	}
}

func TestInsertMany_DuplicateDoesNotAbortRest(t *testing.T) {
	st := openTestStore(t)
	now := time.Now().UTC()

	mustInsert(t, st, testEvent(tenantA, "evt_1", "u1", "signup", now))

	out := mustInsert(t, st,
		testEvent(tenantA, "evt_1", "u1", "signup", now),
		testEvent(tenantA, "evt_2", "u1", "login", now),
		testEvent(tenantA, "evt_3", "u1", "logout", now),
	)
	want := []bool{false, true, true}
	for i, o := range out {
		if o.Inserted != want[i] {
			t.Errorf("outcome[%d].Inserted = %v, want %v", i, o.Inserted, want[i])
		}
	}
}

func TestFind_OrderAndFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	mustInsert(t, st,
		testEvent(tenantA, "evt_old", "u1", "signup", base),
		testEvent(tenantA, "evt_mid", "u2", "login", base.Add(time.Hour)),
		testEvent(tenantA, "evt_new", "u1", "login", base.Add(2*time.Hour)),
	)

	filter := store.EventFilter{OrganizationID: tenantA.OrganizationID, ProjectID: tenantA.ProjectID}
	events, err := st.Find(ctx, filter, 0, 10)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].EventID != "evt_new" || events[2].EventID != "evt_old" {
		t.Errorf("order must be timestamp descending, got %s..%s", events[0].EventID, events[2].EventID)
	}

	filter.UserID = "u1"
	filter.EventName = "login"
	events, err = st.Find(ctx, filter, 0, 10)
	if err != nil {
		t.Fatalf("Find filtered: %v", err)
	}
	if len(events) != 1 || events[0].EventID != "evt_new" {
		t.Errorf("AND filters: got %v", events)
	}

	// Inclusive time bounds.
	start := base.Add(time.Hour)
	end := base.Add(time.Hour)
	filter = store.EventFilter{
		OrganizationID: tenantA.OrganizationID, ProjectID: tenantA.ProjectID,
		Start: &start, End: &end,
	}
	events, err = st.Find(ctx, filter, 0, 10)
	if err != nil {
		t.Fatalf("Find ranged: %v", err)
	}
	if len(events) != 1 || events[0].EventID != "evt_mid" {
		t.Errorf("inclusive range: got %v", events)
	}
}

func TestFind_TimestampTieBrokenByInsertionOrder(t *testing.T) {
	st := openTestStore(t)
	ts := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	mustInsert(t, st,
		testEvent(tenantA, "evt_first", "u1", "a", ts),
		testEvent(tenantA, "evt_second", "u1", "b", ts),
	)

	filter := store.EventFilter{OrganizationID: tenantA.OrganizationID, ProjectID: tenantA.ProjectID}
	events, err := st.Find(context.Background(), filter, 0, 10)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if events[0].EventID != "evt_second" {
		t.Errorf("tie should order by insertion, newest first; got %s", events[0].EventID)
	}
}

func TestCount_And_Pagination(t *testing.T) {
	st := openTestStore(t)
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	batch := make([]models.Event, 0, 7)
	for i := 0; i < 7; i++ {
		batch = append(batch, testEvent(tenantA, "evt_"+string(rune('a'+i)), "u1", "page_view", base.Add(time.Duration(i)*time.Minute)))
	}
	mustInsert(t, st, batch...)

	filter := store.EventFilter{OrganizationID: tenantA.OrganizationID, ProjectID: tenantA.ProjectID}
	count, err := st.Count(context.Background(), filter)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 7 {
		t.Errorf("Count = %d, want 7", count)
	}

	page, err := st.Find(context.Background(), filter, 5, 3)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("last page should have 2 events, got %d", len(page))
	}
}

func TestFindOne_TenantIsolation(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mustInsert(t, st, testEvent(tenantA, "evt_a", "u1", "signup", now))

	// Present under the owning tenant.
	if _, err := st.FindOne(ctx, tenantA, "evt_a"); err != nil {
		t.Fatalf("FindOne same tenant: %v", err)
	}

	// Identity exists but belongs to another tenant: plain not-found.
	if _, err := st.FindOne(ctx, tenantB, "evt_a"); err != store.ErrNotFound {
		t.Errorf("FindOne cross tenant = %v, want ErrNotFound", err)
	}
}

func TestDeleteOne_HardDeleteScoped(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mustInsert(t, st, testEvent(tenantA, "evt_del", "u1", "signup", now))

	// Cross-tenant delete must not remove the event.
	if _, err := st.DeleteOne(ctx, tenantB, "evt_del"); err != store.ErrNotFound {
		t.Fatalf("cross-tenant delete = %v, want ErrNotFound", err)
	}
	if _, err := st.FindOne(ctx, tenantA, "evt_del"); err != nil {
		t.Fatalf("event should survive cross-tenant delete: %v", err)
	}

	deleted, err := st.DeleteOne(ctx, tenantA, "evt_del")
	if err != nil {
		t.Fatalf("DeleteOne: %v", err)
	}
	if deleted.EventID != "evt_del" {
		t.Errorf("deleted.EventID = %q", deleted.EventID)
	}
	if _, err := st.FindOne(ctx, tenantA, "evt_del"); err != store.ErrNotFound {
		t.Errorf("after delete FindOne = %v, want ErrNotFound", err)
	}
}

func TestStats_Empty(t *testing.T) {
	st := openTestStore(t)

	stats, err := st.Stats(context.Background(), tenantA)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalEvents != 0 || stats.UniqueUserCount != 0 || stats.UniqueEventCount != 0 {
		t.Errorf("empty scope should produce zero counts: %+v", stats)
	}
	if stats.LatestEvent != nil || stats.OldestEvent != nil {
		t.Errorf("empty scope should produce nil time bounds: %+v", stats)
	}
}

func TestStats_ScopedAggregate(t *testing.T) {
	st := openTestStore(t)
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	mustInsert(t, st,
		testEvent(tenantA, "evt_1", "u1", "signup", base),
		testEvent(tenantA, "evt_2", "u1", "login", base.Add(time.Hour)),
		testEvent(tenantA, "evt_3", "u2", "login", base.Add(2*time.Hour)),
		// Another tenant's events must not leak into the aggregate.
		testEvent(tenantB, "evt_4", "u9", "other", base.Add(9*time.Hour)),
	)

	stats, err := st.Stats(context.Background(), tenantA)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalEvents != 3 {
		t.Errorf("TotalEvents = %d, want 3", stats.TotalEvents)
	}
	if stats.UniqueUserCount != 2 {
		t.Errorf("UniqueUserCount = %d, want 2", stats.UniqueUserCount)
	}
	if stats.UniqueEventCount != 2 {
		t.Errorf("UniqueEventCount = %d, want 2", stats.UniqueEventCount)
	}
	if stats.LatestEvent == nil || !stats.LatestEvent.Equal(base.Add(2*time.Hour)) {
		t.Errorf("LatestEvent = %v", stats.LatestEvent)
	}
	if stats.OldestEvent == nil || !stats.OldestEvent.Equal(base) {
		t.Errorf("OldestEvent = %v", stats.OldestEvent)
	}
}

func TestInsertMany_RoundTripsOptionalFields(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 10, 30, 0, 0, time.UTC)

	ev := testEvent(tenantA, "evt_full", "u1", "purchase", now)
	ev.SessionID = "sess-9"
	ev.UserAgent = "Mozilla/5.0"
	ev.IPAddress = "198.51.100.4"
	ev.Properties = map[string]any{"amount": 19.99, "currency": "EUR"}
	mustInsert(t, st, ev)

	got, err := st.FindOne(ctx, tenantA, "evt_full")
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if got.SessionID != "sess-9" || got.UserAgent != "Mozilla/5.0" || got.IPAddress != "198.51.100.4" {
		t.Errorf("optional fields lost: %+v", got)
	}
	if !got.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, now)
	}
	if got.Properties["currency"] != "EUR" {
		t.Errorf("Properties = %v", got.Properties)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("lifecycle timestamps must be stamped by the store")
	}
}
