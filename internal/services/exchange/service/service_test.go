package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	apperrors "github.com/louisbranch/secretsanta/internal/platform/errors"
	"github.com/louisbranch/secretsanta/internal/services/exchange/domain"
	"github.com/louisbranch/secretsanta/internal/services/exchange/metrics"
	"github.com/louisbranch/secretsanta/internal/services/exchange/storage"
	"github.com/louisbranch/secretsanta/internal/services/exchange/storage/sqlite"
	"github.com/louisbranch/secretsanta/internal/services/exchange/table"
)

var fixedNow = time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC)

type memoryStore struct {
	records map[string]storage.DrawRecord
	putErr  error
}

func (m *memoryStore) PutDraw(_ context.Context, record storage.DrawRecord) error {
	if m.putErr != nil {
		return m.putErr
	}
	if m.records == nil {
		m.records = make(map[string]storage.DrawRecord)
	}
	m.records[record.ID] = record
	return nil
}

func (m *memoryStore) GetDraw(_ context.Context, id string) (storage.DrawRecord, error) {
	record, ok := m.records[id]
	if !ok {
		return storage.DrawRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func testConfig() Config {
	return Config{
		Now:     func() time.Time { return fixedNow },
		NewSeed: func() (int64, error) { return 99, nil },
		NewID:   func() (string, error) { return "draw-1", nil },
	}
}

func participants(names ...string) []*domain.Participant {
	out := make([]*domain.Participant, 0, len(names))
	for i, name := range names {
		out = append(out, domain.NewParticipant(string(rune('a'+i)), name, strings.ToLower(name)+"@test.com"))
	}
	return out
}

func pairs(ps []*domain.Participant) map[string]string {
	out := make(map[string]string, len(ps))
	for _, p := range ps {
		if p.Recipient == nil {
			out[p.Name] = ""
			continue
		}
		out[p.Name] = p.Recipient.Name
	}
	return out
}

func seedPtr(v int64) *int64 { return &v }

func TestDrawCompletes(t *testing.T) {
	svc := New(testConfig())
	roster := participants("Alice", "Bob", "Charlie", "David", "Eve")
	history := domain.NewHistoryIndex()
	history.Add("Alice", "Bob")
	history.Add("Bob", "Charlie")

	got, err := svc.Draw(context.Background(), Request{Roster: roster, History: history})
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if got.ID != "draw-1" || got.Seed != 99 || !got.CreatedAt.Equal(fixedNow) {
		t.Fatalf("draw metadata = %q/%d/%v", got.ID, got.Seed, got.CreatedAt)
	}
	if got.Attempts < 1 || got.Attempts > DefaultMaxAttempts {
		t.Fatalf("attempts = %d", got.Attempts)
	}

	received := make(map[*domain.Participant]int)
	for _, p := range got.Participants {
		if p.Recipient == nil {
			t.Fatalf("%s has no recipient", p.Name)
		}
		if p.Recipient == p {
			t.Fatalf("%s drew themselves", p.Name)
		}
		received[p.Recipient]++
	}
	for _, p := range roster {
		if received[p] != 1 {
			t.Fatalf("%s received %d gifts", p.Name, received[p])
		}
	}
	if roster[0].Recipient.Name == "Bob" && len(got.Relaxed) == 0 {
		t.Fatal("Alice drew Bob without relaxing history")
	}
}

func TestDrawSeedReplays(t *testing.T) {
	svc := New(testConfig())

	first, err := svc.Draw(context.Background(), Request{Roster: participants("A", "B", "C", "D", "E", "F"), Seed: seedPtr(7)})
	if err != nil {
		t.Fatalf("first draw: %v", err)
	}
	second, err := svc.Draw(context.Background(), Request{Roster: participants("A", "B", "C", "D", "E", "F"), Seed: seedPtr(7)})
	if err != nil {
		t.Fatalf("second draw: %v", err)
	}
	if first.Seed != 7 || second.Seed != 7 {
		t.Fatalf("seeds = %d, %d, want 7", first.Seed, second.Seed)
	}
	if first.Attempts != second.Attempts {
		t.Fatalf("attempts = %d, %d", first.Attempts, second.Attempts)
	}
	if diff := cmp.Diff(pairs(first.Participants), pairs(second.Participants)); diff != "" {
		t.Fatalf("replay mismatch (-first +second):\n%s", diff)
	}
}

func TestDrawIncompleteAfterMaxAttempts(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := testConfig()
	cfg.MaxAttempts = 3
	cfg.Metrics = metrics.New(reg)
	store := &memoryStore{}
	cfg.Store = store
	svc := New(cfg)

	// Two people sharing a name can never give to each other.
	roster := participants("Alex", "Alex")
	_, err := svc.Draw(context.Background(), Request{Roster: roster})
	if !errors.Is(err, domain.ErrAssignmentIncomplete) {
		t.Fatalf("err = %v, want ErrAssignmentIncomplete", err)
	}
	for _, p := range roster {
		if p.Assigned() {
			t.Fatalf("%s kept a partial recipient", p.Name)
		}
	}
	if len(store.records) != 0 {
		t.Fatalf("stored %d incomplete draws", len(store.records))
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "secretsanta_draw_attempts" {
			continue
		}
		if sum := family.GetMetric()[0].GetHistogram().GetSampleSum(); sum != 3 {
			t.Fatalf("attempts observed = %v, want 3", sum)
		}
		return
	}
	t.Fatal("attempts histogram not gathered")
}

func TestDrawRejectsSmallRoster(t *testing.T) {
	svc := New(testConfig())

	for _, roster := range [][]*domain.Participant{nil, participants("Solo")} {
		_, err := svc.Draw(context.Background(), Request{Roster: roster})
		if !errors.Is(err, domain.ErrInsufficientParticipants) {
			t.Fatalf("size %d: err = %v, want ErrInsufficientParticipants", len(roster), err)
		}
	}
}

func TestDrawCanceled(t *testing.T) {
	svc := New(testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Draw(ctx, Request{Roster: participants("A", "B")}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestDrawSeedFailure(t *testing.T) {
	cfg := testConfig()
	boom := errors.New("entropy exhausted")
	cfg.NewSeed = func() (int64, error) { return 0, boom }
	svc := New(cfg)

	if _, err := svc.Draw(context.Background(), Request{Roster: participants("A", "B")}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}

	seed := int64(5)
	got, err := svc.Draw(context.Background(), Request{Roster: participants("A", "B"), Seed: &seed})
	if err != nil {
		t.Fatalf("draw with requested seed: %v", err)
	}
	if got.Seed != 5 {
		t.Fatalf("seed = %d, want 5", got.Seed)
	}
}

func TestDrawPersists(t *testing.T) {
	cfg := testConfig()
	store := &memoryStore{}
	cfg.Store = store
	svc := New(cfg)

	got, err := svc.Draw(context.Background(), Request{Roster: participants("Alice", "Bob")})
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	want := storage.DrawRecord{
		ID:        "draw-1",
		Seed:      99,
		Attempts:  got.Attempts,
		CreatedAt: fixedNow,
		Pairings: []storage.PairingRecord{
			{Position: 0, GiverName: "Alice", GiverEmail: "alice@test.com", RecipientName: "Bob", RecipientEmail: "bob@test.com"},
			{Position: 1, GiverName: "Bob", GiverEmail: "bob@test.com", RecipientName: "Alice", RecipientEmail: "alice@test.com"},
		},
	}
	if diff := cmp.Diff(want, store.records["draw-1"]); diff != "" {
		t.Fatalf("stored record mismatch (-want +got):\n%s", diff)
	}
}

func TestDrawStoreFailureReturnsNoData(t *testing.T) {
	cfg := testConfig()
	cfg.Store = &memoryStore{putErr: errors.New("disk full")}
	svc := New(cfg)

	roster := participants("Alice", "Bob")
	if _, err := svc.Draw(context.Background(), Request{Roster: roster}); err == nil {
		t.Fatal("expected persist error")
	}
	for _, p := range roster {
		if p.Assigned() {
			t.Fatalf("%s kept a recipient after failed persist", p.Name)
		}
	}
}

func TestGetDrawWithoutStore(t *testing.T) {
	svc := New(testConfig())
	if svc.Persistent() {
		t.Fatal("service without store reports persistent")
	}
	if _, err := svc.GetDraw(context.Background(), "draw-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetDrawRoundTripSQLite(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "exchange.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	cfg := testConfig()
	cfg.Store = store
	svc := New(cfg)

	drawn, err := svc.Draw(context.Background(), Request{Roster: participants("Alice", "Bob", "Charlie")})
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	loaded, err := svc.GetDraw(context.Background(), drawn.ID)
	if err != nil {
		t.Fatalf("get draw: %v", err)
	}
	if loaded.Seed != drawn.Seed || loaded.Attempts != drawn.Attempts || !loaded.CreatedAt.Equal(drawn.CreatedAt) {
		t.Fatalf("loaded metadata = %+v, want %+v", loaded, drawn)
	}
	if diff := cmp.Diff(pairs(drawn.Participants), pairs(loaded.Participants)); diff != "" {
		t.Fatalf("pairings mismatch (-drawn +loaded):\n%s", diff)
	}
	if loaded.Participants[0].Email != "alice@test.com" {
		t.Fatalf("giver email = %q", loaded.Participants[0].Email)
	}
}

func TestDrawTables(t *testing.T) {
	svc := New(testConfig())
	employees := table.Source{Name: "employees.csv", Reader: strings.NewReader(
		"Employee_Name,Employee_EmailID\nAlice,alice@test.com\nBob,bob@test.com\nCharlie,charlie@test.com\n",
	)}
	previous := table.Source{Name: "previous.csv", Reader: strings.NewReader(
		"Employee_Name,Secret_Child_Name\nAlice,Bob\n",
	)}

	got, err := svc.DrawTables(context.Background(), employees, previous, seedPtr(3))
	if err != nil {
		t.Fatalf("draw tables: %v", err)
	}
	if len(got.Participants) != 3 || got.Participants[0].Name != "Alice" {
		t.Fatalf("participants = %v", pairs(got.Participants))
	}
	if got.Participants[0].Recipient.Name != "Charlie" {
		t.Fatalf("Alice drew %s, want Charlie", got.Participants[0].Recipient.Name)
	}
}

func TestDrawTablesMalformed(t *testing.T) {
	svc := New(testConfig())
	tests := []struct {
		name      string
		employees string
		previous  string
	}{
		{name: "roster missing email", employees: "Employee_Name\nAlice\nBob\n", previous: "Employee_Name,Secret_Child_Name\n"},
		{name: "history missing child", employees: "Employee_Name,Employee_EmailID\nA,a@x\nB,b@x\n", previous: "Employee_Name\nA\n"},
		{name: "empty roster file", employees: "", previous: "Employee_Name,Secret_Child_Name\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.DrawTables(context.Background(),
				table.Source{Name: "employees.csv", Reader: strings.NewReader(tt.employees)},
				table.Source{Name: "previous.csv", Reader: strings.NewReader(tt.previous)},
				nil,
			)
			if got := apperrors.GetCode(err); got != apperrors.CodeMalformedInput {
				t.Fatalf("code = %q (err %v), want %q", got, err, apperrors.CodeMalformedInput)
			}
		})
	}
}
