package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/evaluator"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// urgentLimit caps the urgent list on the dashboard.
const urgentLimit = 5

// DashboardStats is one computed dashboard snapshot.
type DashboardStats struct {
	OpenTickets   int                             `json:"open_tickets"`
	SLABreaches   int                             `json:"sla_breaches"`
	OnlineAgents  int                             `json:"online_agents"`
	UrgentTickets []domain.Ticket                 `json:"urgent_tickets"`
	TicketVolume  [evaluator.VolumeBuckets]int    `json:"ticket_volume"`
	VolumeLabels  [evaluator.VolumeBuckets]string `json:"volume_labels"`
	AvgResponse   string                          `json:"avg_response"`
	RefreshedAt   time.Time                       `json:"refreshed_at"`
	Stale         bool                            `json:"-"`
}

// SnapshotStore shares dashboard snapshots between instances.
type SnapshotStore interface {
	Load(ctx context.Context) (*DashboardStats, error)
	Save(ctx context.Context, stats DashboardStats) error
}

// DashboardService computes and caches dashboard statistics.
type DashboardService struct {
	tickets   repository.TicketRepository
	rules     repository.SLARuleRepository
	agents    repository.AgentRepository
	evaluator *evaluator.Evaluator
	store     SnapshotStore
	window    time.Duration
	staleness time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.RWMutex
	snapshot *DashboardStats
}

// DashboardDependencies bundles collaborators for the dashboard.
type DashboardDependencies struct {
	TicketRepo     repository.TicketRepository
	RuleRepo       repository.SLARuleRepository
	AgentRepo      repository.AgentRepository
	Evaluator      *evaluator.Evaluator
	Store          SnapshotStore
	PresenceWindow time.Duration
	PollInterval   time.Duration
	Logger         *zap.Logger
	Clock          func() time.Time
}

// NewDashboardService constructs the service.
func NewDashboardService(deps DashboardDependencies) *DashboardService {
	ev := deps.Evaluator
	if ev == nil {
		ev = evaluator.New("")
	}
	window := deps.PresenceWindow
	if window <= 0 {
		window = evaluator.DefaultPresenceWindow
	}
	poll := deps.PollInterval
	if poll <= 0 {
		poll = time.Minute
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &DashboardService{
		tickets:   deps.TicketRepo,
		rules:     deps.RuleRepo,
		agents:    deps.AgentRepo,
		evaluator: ev,
		store:     deps.Store,
		window:    window,
		staleness: 2 * poll,
		logger:    logger,
		now:       clock,
	}
}

// Refresh recomputes the snapshot. On failure the previous snapshot is kept.
func (s *DashboardService) Refresh(ctx context.Context) error {
	var (
		tickets []domain.Ticket
		rules   []domain.SLARule
		agents  []domain.Agent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tickets, err = s.tickets.List(gctx, repository.TicketFilter{})
		if err != nil {
			return fmt.Errorf("list tickets: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rules, err = s.rules.List(gctx)
		if err != nil {
			return fmt.Errorf("list sla rules: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		agents, err = s.agents.List(gctx)
		if err != nil {
			return fmt.Errorf("list agents: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	stats := s.compute(tickets, rules, agents, s.now())
	s.mu.Lock()
	s.snapshot = &stats
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Save(ctx, stats); err != nil {
			s.logger.Warn("dashboard snapshot not shared", zap.Error(err))
		}
	}
	return nil
}

func (s *DashboardService) compute(tickets []domain.Ticket, rules []domain.SLARule, agents []domain.Agent, now time.Time) DashboardStats {
	stats := DashboardStats{
		SLABreaches:   s.evaluator.CountBreaches(tickets, rules, now),
		OnlineAgents:  evaluator.CountOnline(agents, now, s.window),
		UrgentTickets: []domain.Ticket{},
		TicketVolume:  evaluator.BucketizeTickets(tickets, now),
		VolumeLabels:  evaluator.VolumeLabels(),
		AvgResponse:   FormatDuration(averageResolution(tickets)),
		RefreshedAt:   now.UTC(),
	}
	for _, t := range tickets {
		if t.Status.IsTerminal() {
			continue
		}
		stats.OpenTickets++
		if t.Priority == domain.TicketPriorityHigh && len(stats.UrgentTickets) < urgentLimit {
			stats.UrgentTickets = append(stats.UrgentTickets, t)
		}
	}
	return stats
}

// Snapshot returns the latest snapshot, falling back to one shared by another
// instance. Stale is set when it is older than twice the poll interval.
func (s *DashboardService) Snapshot(ctx context.Context) (*DashboardStats, error) {
	s.mu.RLock()
	current := s.snapshot
	s.mu.RUnlock()

	if current == nil && s.store != nil {
		shared, err := s.store.Load(ctx)
		if err != nil {
			s.logger.Warn("dashboard snapshot load failed", zap.Error(err))
		}
		current = shared
	}
	if current == nil {
		return nil, apperrors.NewUnavailable("dashboard", errors.New("no snapshot computed yet"))
	}

	out := *current
	out.Stale = s.now().Sub(out.RefreshedAt) > s.staleness
	return &out, nil
}

// averageResolution is the mean time from creation to resolution over
// resolved tickets.
func averageResolution(tickets []domain.Ticket) time.Duration {
	var (
		total time.Duration
		count int
	)
	for _, t := range tickets {
		if t.ResolvedAt == nil || !t.Status.IsTerminal() || t.ResolvedAt.Before(t.CreatedAt) {
			continue
		}
		total += t.ResolvedAt.Sub(t.CreatedAt)
		count++
	}
	if count == 0 {
		return 0
	}
	return total / time.Duration(count)
}

// FormatDuration renders a duration as "1h 42m", or "0m" when empty.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// RedisSnapshotStore keeps the dashboard snapshot under one Redis key.
type RedisSnapshotStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisSnapshotStore builds a store. A nil client yields a nil store.
func NewRedisSnapshotStore(client *redis.Client, key string, ttl time.Duration) SnapshotStore {
	if client == nil {
		return nil
	}
	return &RedisSnapshotStore{client: client, key: key, ttl: ttl}
}

// Load returns nil without error when no snapshot is stored.
func (r *RedisSnapshotStore) Load(ctx context.Context) (*DashboardStats, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var stats DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *RedisSnapshotStore) Save(ctx context.Context, stats DashboardStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key, raw, r.ttl).Err()
}
