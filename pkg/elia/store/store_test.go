package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "elia.db"), nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSeedDefaults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, key := range []string{KeyPersonality, KeyReplyChance, KeyModelID} {
		val, err := s.GetConfig(ctx, key)
		if err != nil {
			t.Errorf("GetConfig(%q) error: %v", key, err)
		}
		if val == "" {
			t.Errorf("GetConfig(%q) = empty, want seeded default", key)
		}
	}
}

func TestSeedDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "elia.db")
	ctx := context.Background()

	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := s.SetConfig(ctx, KeyPersonality, "custom personality"); err != nil {
		t.Fatalf("SetConfig() error: %v", err)
	}
	s.Close()

	// Reopening must not reset operator-written values.
	s2, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer s2.Close()

	val, err := s2.GetConfig(ctx, KeyPersonality)
	if err != nil {
		t.Fatalf("GetConfig() error: %v", err)
	}
	if val != "custom personality" {
		t.Errorf("GetConfig(personality) = %q, want %q", val, "custom personality")
	}
}

func TestGetConfigMissingKey(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetConfig(context.Background(), "no_such_key")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("GetConfig(missing) error = %v, want ErrKeyNotFound", err)
	}
}

func TestSetConfigVisibleToNextRead(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SetConfig(ctx, KeyReplyChance, "0.42"); err != nil {
		t.Fatalf("SetConfig() error: %v", err)
	}
	val, err := s.GetConfig(ctx, KeyReplyChance)
	if err != nil {
		t.Fatalf("GetConfig() error: %v", err)
	}
	if val != "0.42" {
		t.Errorf("GetConfig(reply_chance) = %q, want %q", val, "0.42")
	}
}

func TestFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.AddFilter(ctx, "bomb", DirectionInput); err != nil {
		t.Fatalf("AddFilter() error: %v", err)
	}
	if err := s.AddFilter(ctx, "secret", DirectionOutput); err != nil {
		t.Fatalf("AddFilter() error: %v", err)
	}
	if err := s.AddFilter(ctx, "x", "sideways"); err == nil {
		t.Error("AddFilter() with bad direction: expected error, got nil")
	}

	input, err := s.Filters(ctx, DirectionInput)
	if err != nil {
		t.Fatalf("Filters(input) error: %v", err)
	}
	if len(input) != 1 || input[0] != "bomb" {
		t.Errorf("Filters(input) = %v, want [bomb]", input)
	}

	output, err := s.Filters(ctx, DirectionOutput)
	if err != nil {
		t.Fatalf("Filters(output) error: %v", err)
	}
	if len(output) != 1 || output[0] != "secret" {
		t.Errorf("Filters(output) = %v, want [secret]", output)
	}

	all, err := s.AllFilters(ctx)
	if err != nil {
		t.Fatalf("AllFilters() error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("AllFilters() returned %d rules, want 2", len(all))
	}

	if err := s.DeleteFilter(ctx, all[0].ID); err != nil {
		t.Fatalf("DeleteFilter() error: %v", err)
	}
	remaining, _ := s.AllFilters(ctx)
	if len(remaining) != 1 {
		t.Errorf("after delete: %d rules, want 1", len(remaining))
	}
}

func TestDeleteFilterByPattern(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Duplicates are allowed; removal by pattern clears them all.
	s.AddFilter(ctx, "spam", DirectionInput)
	s.AddFilter(ctx, "spam", DirectionInput)
	s.AddFilter(ctx, "spam", DirectionOutput)

	n, err := s.DeleteFilterByPattern(ctx, "spam", DirectionInput)
	if err != nil {
		t.Fatalf("DeleteFilterByPattern() error: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d rules, want 2", n)
	}

	output, _ := s.Filters(ctx, DirectionOutput)
	if len(output) != 1 {
		t.Errorf("output direction affected by input delete: %v", output)
	}
}

func TestMemoryFacts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if facts, err := s.Facts(ctx, "u1"); err != nil || len(facts) != 0 {
		t.Fatalf("Facts(empty) = %v, %v; want none", facts, err)
	}

	s.AddFact(ctx, "u1", "likes trains")
	s.AddFact(ctx, "u1", "from Lisbon")
	s.AddFact(ctx, "u2", "hates mornings")

	facts, err := s.Facts(ctx, "u1")
	if err != nil {
		t.Fatalf("Facts() error: %v", err)
	}
	want := []string{"likes trains", "from Lisbon"}
	if len(facts) != len(want) {
		t.Fatalf("Facts(u1) = %v, want %v", facts, want)
	}
	for i := range want {
		if facts[i] != want[i] {
			t.Errorf("Facts(u1)[%d] = %q, want %q", i, facts[i], want[i])
		}
	}

	all, err := s.AllFacts(ctx)
	if err != nil {
		t.Fatalf("AllFacts() error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("AllFacts() returned %d facts, want 3", len(all))
	}
}

func TestAdmins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if ok, _ := s.IsAdmin(ctx, "u1"); ok {
		t.Error("IsAdmin(u1) = true before AddAdmin")
	}

	s.AddAdmin(ctx, "u1")
	s.AddAdmin(ctx, "u1") // idempotent

	if ok, _ := s.IsAdmin(ctx, "u1"); !ok {
		t.Error("IsAdmin(u1) = false after AddAdmin")
	}

	admins, _ := s.Admins(ctx)
	if len(admins) != 1 {
		t.Errorf("Admins() = %v, want exactly one entry", admins)
	}

	s.RemoveAdmin(ctx, "u1")
	if ok, _ := s.IsAdmin(ctx, "u1"); ok {
		t.Error("IsAdmin(u1) = true after RemoveAdmin")
	}
}

func TestExchangeLog(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.AppendExchange(ctx, "alice", "hello", "hi there"); err != nil {
			t.Fatalf("AppendExchange() error: %v", err)
		}
		time.Sleep(2 * time.Millisecond) // distinct created_at ordering
	}

	entries, err := s.RecentExchanges(ctx, 2)
	if err != nil {
		t.Fatalf("RecentExchanges() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("RecentExchanges(2) returned %d entries", len(entries))
	}
	if entries[0].CreatedAt.Before(entries[1].CreatedAt) {
		t.Error("RecentExchanges() not newest-first")
	}

	n, _ := s.CountExchanges(ctx)
	if n != 3 {
		t.Errorf("CountExchanges() = %d, want 3", n)
	}
}

func TestExchangeOrderingSubSecond(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Timestamps whose fractions are string prefixes of each other
	// (.5 vs .52): chronological and lexicographic order only agree
	// when the stored format is fixed-width.
	older := time.Date(2026, 8, 30, 10, 0, 0, 500_000_000, time.UTC)
	newer := time.Date(2026, 8, 30, 10, 0, 0, 520_000_000, time.UTC)

	insert := func(id, input string, at time.Time) {
		t.Helper()
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO logs (id, speaker, input, output, created_at) VALUES (?, ?, ?, ?, ?)`,
			id, "alice", input, "reply", formatTime(at))
		if err != nil {
			t.Fatalf("inserting row %q: %v", id, err)
		}
	}
	insert("a", "older", older)
	insert("b", "newer", newer)

	entries, err := s.RecentExchanges(ctx, 1)
	if err != nil {
		t.Fatalf("RecentExchanges() error: %v", err)
	}
	if len(entries) != 1 || entries[0].Input != "newer" {
		t.Fatalf("newest entry = %+v, want the chronologically newer row", entries)
	}
	if !entries[0].CreatedAt.Equal(newer) {
		t.Errorf("CreatedAt = %v, want %v round-tripped", entries[0].CreatedAt, newer)
	}

	// A cutoff between the two prunes exactly the older row.
	n, err := s.PruneExchanges(ctx, time.Date(2026, 8, 30, 10, 0, 0, 510_000_000, time.UTC))
	if err != nil {
		t.Fatalf("PruneExchanges() error: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}
	remaining, _ := s.RecentExchanges(ctx, 10)
	if len(remaining) != 1 || remaining[0].Input != "newer" {
		t.Errorf("after prune: %+v, want only the newer row", remaining)
	}
}

func TestPruneExchanges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.AppendExchange(ctx, "alice", "old", "old reply")
	time.Sleep(5 * time.Millisecond)
	cutoff := time.Now()
	time.Sleep(5 * time.Millisecond)
	s.AppendExchange(ctx, "alice", "new", "new reply")

	n, err := s.PruneExchanges(ctx, cutoff)
	if err != nil {
		t.Fatalf("PruneExchanges() error: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}

	entries, _ := s.RecentExchanges(ctx, 10)
	if len(entries) != 1 || entries[0].Input != "new" {
		t.Errorf("after prune: %+v, want only the new entry", entries)
	}
}
