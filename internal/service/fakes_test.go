package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

var errStoreDown = errors.New("store unavailable")

type fakeTicketRepo struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]*domain.Ticket
	order   []string
}

func newFakeTicketRepo(tickets ...domain.Ticket) *fakeTicketRepo {
	r := &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
	for i := range tickets {
		t := tickets[i]
		r.tickets[t.ID] = &t
		r.order = append(r.order, t.ID)
	}
	return r
}

func (r *fakeTicketRepo) Create(_ context.Context, t *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	t.ID = fmt.Sprintf("t%d", r.seq)
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	r.tickets[t.ID] = &cp
	r.order = append(r.order, t.ID)
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, t *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[t.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *t
	r.tickets[t.ID] = &cp
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for i := len(r.order) - 1; i >= 0; i-- {
		t, ok := r.tickets[r.order[i]]
		if !ok {
			continue
		}
		if filter.SearchTerm != nil && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(*filter.SearchTerm)) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r *fakeTicketRepo) LatestOpenForCustomer(_ context.Context, customerID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		t, ok := r.tickets[r.order[i]]
		if ok && t.CustomerID == customerID && !t.Status.IsTerminal() {
			cp := *t
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

type fakeNoteRepo struct {
	notes []domain.Note
}

func (r *fakeNoteRepo) Create(_ context.Context, n *domain.Note) error {
	n.ID = fmt.Sprintf("n%d", len(r.notes)+1)
	n.At = time.Now()
	r.notes = append([]domain.Note{*n}, r.notes...)
	return nil
}

func (r *fakeNoteRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Note, error) {
	var out []domain.Note
	for _, n := range r.notes {
		if n.TicketID == ticketID {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakeAuditRepo struct {
	entries []domain.AuditEntry
}

func (r *fakeAuditRepo) Create(_ context.Context, e *domain.AuditEntry) error {
	r.entries = append(r.entries, *e)
	return nil
}

func (r *fakeAuditRepo) ListByEntity(_ context.Context, entityType, entityID string) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	for _, e := range r.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) actions() []domain.AuditAction {
	out := make([]domain.AuditAction, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type fakeAgentRepo struct {
	agents  map[string]*domain.Agent
	seq     int
	listErr error
	seenErr error
	seen    map[string]time.Time
}

func newFakeAgentRepo(agents ...domain.Agent) *fakeAgentRepo {
	r := &fakeAgentRepo{agents: map[string]*domain.Agent{}, seen: map[string]time.Time{}}
	for i := range agents {
		a := agents[i]
		r.agents[a.ID] = &a
	}
	return r
}

func (r *fakeAgentRepo) Create(_ context.Context, a *domain.Agent) error {
	r.seq++
	a.ID = fmt.Sprintf("a%d", r.seq)
	cp := *a
	r.agents[a.ID] = &cp
	return nil
}

func (r *fakeAgentRepo) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	a, ok := r.agents[id]
	if !ok || a.Deleted {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAgentRepo) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	for _, a := range r.agents {
		if a.Email == email && !a.Deleted {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAgentRepo) List(context.Context) ([]domain.Agent, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Agent
	for _, a := range r.agents {
		if !a.Deleted {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeAgentRepo) SoftDelete(_ context.Context, id string) error {
	a, ok := r.agents[id]
	if !ok || a.Deleted {
		return pgx.ErrNoRows
	}
	a.Deleted = true
	return nil
}

func (r *fakeAgentRepo) TouchLastSeen(_ context.Context, id string, at time.Time) error {
	if r.seenErr != nil {
		return r.seenErr
	}
	r.seen[id] = at
	return nil
}

type fakeRuleRepo struct {
	rules   []domain.SLARule
	listErr error
}

func (r *fakeRuleRepo) Create(_ context.Context, rule *domain.SLARule) error {
	rule.ID = fmt.Sprintf("r%d", len(r.rules)+1)
	r.rules = append(r.rules, *rule)
	return nil
}

func (r *fakeRuleRepo) GetByID(_ context.Context, id string) (*domain.SLARule, error) {
	for i := range r.rules {
		if r.rules[i].ID == id {
			cp := r.rules[i]
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRuleRepo) List(context.Context) ([]domain.SLARule, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]domain.SLARule(nil), r.rules...), nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*domain.ChatSession
	listErr  error
	delErr   error
}

func newFakeSessionRepo(sessions ...domain.ChatSession) *fakeSessionRepo {
	r := &fakeSessionRepo{sessions: map[string]*domain.ChatSession{}}
	for i := range sessions {
		s := sessions[i]
		r.sessions[s.ID] = &s
	}
	return r
}

func (r *fakeSessionRepo) Create(_ context.Context, s *domain.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	s.ID = fmt.Sprintf("s%d", r.seq)
	s.StartedAt = time.Now()
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) Update(_ context.Context, s *domain.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id string) (*domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) List(_ context.Context, filter repository.ChatSessionFilter) ([]domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.ChatSession
	for _, s := range r.sessions {
		if filter.TicketID != nil && (s.TicketID == nil || *s.TicketID != *filter.TicketID) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.delErr != nil {
		return r.delErr
	}
	if _, ok := r.sessions[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.sessions, id)
	return nil
}

type fakeMessageRepo struct {
	mu        sync.Mutex
	messages  []domain.ChatMessage
	createErr error
}

func (r *fakeMessageRepo) Create(_ context.Context, m *domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.messages = append(r.messages, *m)
	return nil
}

func (r *fakeMessageRepo) ListBySession(_ context.Context, sessionID string) ([]domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ChatMessage
	for _, m := range r.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeCustomerRepo struct {
	customers map[string]*domain.Customer
	seq       int
}

func newFakeCustomerRepo(customers ...domain.Customer) *fakeCustomerRepo {
	r := &fakeCustomerRepo{customers: map[string]*domain.Customer{}}
	for i := range customers {
		c := customers[i]
		r.customers[c.ID] = &c
	}
	return r
}

func (r *fakeCustomerRepo) Create(_ context.Context, c *domain.Customer) error {
	r.seq++
	c.ID = fmt.Sprintf("c%d", r.seq)
	cp := *c
	r.customers[c.ID] = &cp
	return nil
}

func (r *fakeCustomerRepo) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCustomerRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	for _, c := range r.customers {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCustomerRepo) SetPassword(_ context.Context, id, hash string) error {
	c, ok := r.customers[id]
	if !ok {
		return pgx.ErrNoRows
	}
	c.PasswordHash = hash
	return nil
}

type fakeArticleRepo struct {
	articles map[string]*domain.Article
	seq      int
}

func newFakeArticleRepo() *fakeArticleRepo {
	return &fakeArticleRepo{articles: map[string]*domain.Article{}}
}

func (r *fakeArticleRepo) Create(_ context.Context, a *domain.Article) error {
	r.seq++
	a.ID = fmt.Sprintf("k%d", r.seq)
	cp := *a
	r.articles[a.ID] = &cp
	return nil
}

func (r *fakeArticleRepo) Update(_ context.Context, a *domain.Article) error {
	if _, ok := r.articles[a.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *a
	r.articles[a.ID] = &cp
	return nil
}

func (r *fakeArticleRepo) GetByID(_ context.Context, id string) (*domain.Article, error) {
	a, ok := r.articles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (r *fakeArticleRepo) List(_ context.Context, filter repository.ArticleFilter) ([]domain.Article, error) {
	var out []domain.Article
	for _, a := range r.articles {
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (r *fakeArticleRepo) AddHelpfulness(_ context.Context, id string, delta int) (int, error) {
	a, ok := r.articles[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	a.HelpfulnessScore += delta
	return a.HelpfulnessScore, nil
}

// eventLog collects published events.
type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) Publish(_ context.Context, e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) Subscribe(events.EventType, events.EventHandler) events.Unsubscribe {
	return func() {}
}

func (l *eventLog) SubscribeAll(events.EventHandler) events.Unsubscribe {
	return func() {}
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
