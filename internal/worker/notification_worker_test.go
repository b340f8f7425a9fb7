package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/evaluator"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type fakeTickets struct {
	tickets []domain.Ticket
	err     error
	filter  repository.TicketFilter
}

func (f *fakeTickets) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.filter = filter
	return f.tickets, f.err
}

type fakeRules []domain.SLARule

func (f fakeRules) List(context.Context) ([]domain.SLARule, error) { return f, nil }

func TestBreachScannerReportsOnce(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tickets := &fakeTickets{tickets: []domain.Ticket{
		{ID: "late", Title: "Printer on fire", Priority: domain.TicketPriorityHigh, Status: domain.TicketStatusOpen, CreatedAt: now.Add(-61 * time.Minute)},
		{ID: "fine", Priority: domain.TicketPriorityHigh, Status: domain.TicketStatusOpen, CreatedAt: now.Add(-10 * time.Minute)},
	}}
	rules := fakeRules{{ID: "r1", Name: "High Priority", ResponseMinutes: 15, ResolutionMinutes: 60}}

	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	var got []events.Event
	dispatcher.Subscribe(events.EventSLABreached, func(_ context.Context, e events.Event) error {
		got = append(got, e)
		return nil
	})

	scanner := NewBreachScanner(tickets, rules, evaluator.New(""), dispatcher, zap.NewNop())
	scanner.now = func() time.Time { return now }

	count, err := scanner.Scan(context.Background())
	if err != nil || count != 1 {
		t.Fatalf("first scan: count=%d err=%v", count, err)
	}
	if len(got) != 1 || got[0].EntityID != "late" {
		t.Fatalf("unexpected events %+v", got)
	}
	payload, ok := got[0].Payload.(events.SLABreachedPayload)
	if !ok || payload.RuleName != "High Priority" || payload.OverMinutes != 1 {
		t.Fatalf("unexpected payload %+v", got[0].Payload)
	}
	if len(tickets.filter.Statuses) != 2 {
		t.Fatalf("scan should only list open tickets, got %v", tickets.filter.Statuses)
	}

	if count, _ := scanner.Scan(context.Background()); count != 0 || len(got) != 1 {
		t.Fatalf("breach reported twice")
	}

	// resolved then reopened and late again: reported anew
	saved := tickets.tickets
	tickets.tickets = nil
	_, _ = scanner.Scan(context.Background())
	tickets.tickets = saved
	if count, _ := scanner.Scan(context.Background()); count != 1 {
		t.Fatalf("expected breach to be reported again after clearing")
	}
}

func TestBreachScannerPropagatesListErrors(t *testing.T) {
	scanner := NewBreachScanner(&fakeTickets{err: errors.New("down")}, fakeRules{}, nil, nil, nil)
	if _, err := scanner.Scan(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
