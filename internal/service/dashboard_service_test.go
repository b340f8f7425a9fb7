package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type memorySnapshotStore struct {
	saved *DashboardStats
}

func (m *memorySnapshotStore) Load(context.Context) (*DashboardStats, error) {
	return m.saved, nil
}

func (m *memorySnapshotStore) Save(_ context.Context, stats DashboardStats) error {
	m.saved = &stats
	return nil
}

func TestDashboardRefresh(t *testing.T) {
	now := time.Date(2024, 8, 1, 15, 0, 0, 0, time.UTC)
	resolved := now.Add(-time.Hour)
	seen := now.Add(-2 * time.Minute)
	stale := now.Add(-time.Hour)

	var tickets []domain.Ticket
	for i := 0; i < 7; i++ {
		tickets = append(tickets, domain.Ticket{
			ID:        string(rune('a' + i)),
			Priority:  domain.TicketPriorityHigh,
			Status:    domain.TicketStatusOpen,
			CreatedAt: now.Add(-10 * time.Minute),
		})
	}
	tickets = append(tickets,
		domain.Ticket{ID: "late", Priority: domain.TicketPriorityLow, Status: domain.TicketStatusInProgress, CreatedAt: now.Add(-25 * time.Hour)},
		domain.Ticket{ID: "done", Priority: domain.TicketPriorityHigh, Status: domain.TicketStatusClosed, CreatedAt: resolved.Add(-102 * time.Minute), ResolvedAt: &resolved},
	)

	store := &memorySnapshotStore{}
	svc := NewDashboardService(DashboardDependencies{
		TicketRepo:   newFakeTicketRepo(tickets...),
		RuleRepo:     &fakeRuleRepo{rules: seededRules()},
		AgentRepo:    newFakeAgentRepo(domain.Agent{ID: "a1", LastSeen: &seen}, domain.Agent{ID: "a2", LastSeen: &stale}),
		Store:        store,
		PollInterval: time.Minute,
		Clock:        fixedClock(now),
	})

	if _, err := svc.Snapshot(context.Background()); errorCode(err) != "DEPENDENCY_UNAVAILABLE" {
		t.Fatalf("expected unavailable before first refresh, got %v", err)
	}
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	stats, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if stats.OpenTickets != 8 {
		t.Fatalf("open tickets = %d, want 8", stats.OpenTickets)
	}
	if stats.SLABreaches != 1 {
		t.Fatalf("breaches = %d, want 1", stats.SLABreaches)
	}
	if stats.OnlineAgents != 1 {
		t.Fatalf("online agents = %d, want 1", stats.OnlineAgents)
	}
	if len(stats.UrgentTickets) != urgentLimit {
		t.Fatalf("urgent tickets = %d, want %d", len(stats.UrgentTickets), urgentLimit)
	}
	if stats.TicketVolume[23] != 7 {
		t.Fatalf("current hour volume = %d, want 7", stats.TicketVolume[23])
	}
	if stats.AvgResponse != "1h 42m" {
		t.Fatalf("avg response = %q", stats.AvgResponse)
	}
	if stats.Stale {
		t.Fatalf("fresh snapshot marked stale")
	}
	if store.saved == nil {
		t.Fatalf("snapshot not shared")
	}
}

func TestDashboardKeepsSnapshotOnFailure(t *testing.T) {
	now := time.Date(2024, 8, 1, 15, 0, 0, 0, time.UTC)
	clock := now
	agents := newFakeAgentRepo()
	svc := NewDashboardService(DashboardDependencies{
		TicketRepo:   newFakeTicketRepo(),
		RuleRepo:     &fakeRuleRepo{},
		AgentRepo:    agents,
		PollInterval: time.Minute,
		Clock:        func() time.Time { return clock },
	})
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	agents.listErr = errStoreDown
	clock = now.Add(3 * time.Minute)
	if err := svc.Refresh(context.Background()); err == nil {
		t.Fatalf("expected refresh error")
	}
	stats, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !stats.RefreshedAt.Equal(now) || !stats.Stale {
		t.Fatalf("expected previous snapshot marked stale, got %+v", stats)
	}
}

func TestDashboardLoadsSharedSnapshot(t *testing.T) {
	now := time.Date(2024, 8, 1, 15, 0, 0, 0, time.UTC)
	store := &memorySnapshotStore{saved: &DashboardStats{OpenTickets: 4, RefreshedAt: now}}
	svc := NewDashboardService(DashboardDependencies{Store: store, Clock: fixedClock(now)})
	stats, err := svc.Snapshot(context.Background())
	if err != nil || stats.OpenTickets != 4 {
		t.Fatalf("expected shared snapshot, got %+v %v", stats, err)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		0:                                 "0m",
		45 * time.Minute:                  "45m",
		time.Hour + 42*time.Minute:        "1h 42m",
		26*time.Hour + 30*time.Second + 1: "26h 1m",
	}
	for d, want := range cases {
		if got := FormatDuration(d); got != want {
			t.Errorf("FormatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}
