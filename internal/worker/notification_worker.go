package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/evaluator"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// BreachScanJob is the scheduler name of the SLA breach scan.
const BreachScanJob = "sla-breach-scan"

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// TicketLister lists tickets.
type TicketLister interface {
	List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error)
}

// RuleLister lists SLA rules.
type RuleLister interface {
	List(ctx context.Context) ([]domain.SLARule, error)
}

// BreachScanner publishes sla_breached once per ticket when an open ticket
// passes its resolution deadline.
type BreachScanner struct {
	tickets    TicketLister
	rules      RuleLister
	evaluator  *evaluator.Evaluator
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.Mutex
	notified map[string]struct{}
}

// NewBreachScanner builds a scanner.
func NewBreachScanner(tickets TicketLister, rules RuleLister, ev *evaluator.Evaluator, dispatcher events.Dispatcher, logger *zap.Logger) *BreachScanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ev == nil {
		ev = evaluator.New("")
	}
	return &BreachScanner{
		tickets:    tickets,
		rules:      rules,
		evaluator:  ev,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
		notified:   make(map[string]struct{}),
	}
}

// Scan evaluates every open ticket and reports new breaches. Tickets that are
// no longer breached are forgotten so a later breach reports again.
func (b *BreachScanner) Scan(ctx context.Context) (int, error) {
	tickets, err := b.tickets.List(ctx, repository.TicketFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress},
	})
	if err != nil {
		return 0, err
	}
	rules, err := b.rules.List(ctx)
	if err != nil {
		return 0, err
	}

	now := b.now()
	breached := make(map[string]struct{})
	var fresh []events.Event
	b.mu.Lock()
	for _, ticket := range tickets {
		rule, ok := b.evaluator.SelectRule(ticket, rules)
		if !ok {
			continue
		}
		status := b.evaluator.EvaluateResolution(ticket, rule, now)
		if !status.IsBreached {
			continue
		}
		breached[ticket.ID] = struct{}{}
		if _, seen := b.notified[ticket.ID]; seen {
			continue
		}
		fresh = append(fresh, events.Event{
			Type:      events.EventSLABreached,
			EntityID:  ticket.ID,
			Timestamp: now.UTC(),
			Payload: events.SLABreachedPayload{
				RuleName:    rule.Name,
				Title:       ticket.Title,
				Deadline:    status.Deadline,
				OverMinutes: status.DiffMinutes,
			},
		})
	}
	b.notified = breached
	b.mu.Unlock()

	for _, event := range fresh {
		if b.dispatcher == nil {
			break
		}
		if err := b.dispatcher.Publish(ctx, event); err != nil {
			b.logger.Warn("publish sla breach failed", zap.String("ticket_id", event.EntityID), zap.Error(err))
		}
	}
	return len(fresh), nil
}

// Schedule runs Scan on the scheduler every interval.
func (b *BreachScanner) Schedule(s *Scheduler, interval time.Duration) (func(), error) {
	return s.Every(BreachScanJob, interval, func(ctx context.Context) {
		count, err := b.Scan(ctx)
		if err != nil {
			b.logger.Warn("sla breach scan failed", zap.Error(err))
			return
		}
		if count > 0 {
			b.logger.Info("sla breaches detected", zap.Int("count", count))
		}
	})
}
