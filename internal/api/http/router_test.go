package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

type memTickets struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]domain.Ticket
}

func (m *memTickets) Create(_ context.Context, t *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t.ID = fmt.Sprintf("t%d", m.seq)
	t.CaseNumber = fmt.Sprintf("CS-%04d", m.seq)
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	m.tickets[t.ID] = *t
	return nil
}

func (m *memTickets) Update(_ context.Context, t *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[t.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.tickets[t.ID] = *t
	return nil
}

func (m *memTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (m *memTickets) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Ticket
	for _, t := range m.tickets {
		if filter.CustomerID != nil && t.CustomerID != *filter.CustomerID {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memTickets) LatestOpenForCustomer(context.Context, string) (*domain.Ticket, error) {
	return nil, pgx.ErrNoRows
}

func (m *memTickets) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.tickets, id)
	return nil
}

type memRules []domain.SLARule

func (m memRules) Create(context.Context, *domain.SLARule) error { return nil }
func (m memRules) GetByID(context.Context, string) (*domain.SLARule, error) {
	return nil, pgx.ErrNoRows
}
func (m memRules) List(context.Context) ([]domain.SLARule, error) { return m, nil }

type memArticles map[string]domain.Article

func (m memArticles) Create(context.Context, *domain.Article) error { return nil }
func (m memArticles) Update(context.Context, *domain.Article) error { return nil }
func (m memArticles) GetByID(_ context.Context, id string) (*domain.Article, error) {
	a, ok := m[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &a, nil
}
func (m memArticles) List(_ context.Context, filter repository.ArticleFilter) ([]domain.Article, error) {
	var out []domain.Article
	for _, a := range m {
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
func (m memArticles) AddHelpfulness(context.Context, string, int) (int, error) { return 0, nil }

type agentLookup map[string]*domain.Agent

func (l agentLookup) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	if a, ok := l[id]; ok {
		return a, nil
	}
	return nil, pgx.ErrNoRows
}

type customerLookup map[string]*domain.Customer

func (l customerLookup) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	if c, ok := l[id]; ok {
		return c, nil
	}
	return nil, pgx.ErrNoRows
}

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	tokens := auth.NewTokenManager("test-secret", 15)
	agents := agentLookup{
		"admin-1": {ID: "admin-1", Name: "Ada", Role: domain.AgentRoleAdmin},
		"emp-1":   {ID: "emp-1", Name: "Eve", Role: domain.AgentRoleEmployee},
	}
	customers := customerLookup{"cust-1": {ID: "cust-1", Name: "Carl"}}

	ticketRepo := &memTickets{tickets: map[string]domain.Ticket{}}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	ticketService := service.NewTicketService(service.TicketDependencies{TicketRepo: ticketRepo, Dispatcher: dispatcher})
	slaService := service.NewSLAService(service.SLADependencies{RuleRepo: memRules{}, TicketRepo: ticketRepo})
	articleService := service.NewArticleService(service.ArticleDependencies{ArticleRepo: memArticles{
		"kb-1": {ID: "kb-1", Title: "Reset your password", Status: domain.ArticleStatusPublished},
		"kb-2": {ID: "kb-2", Title: "Unreleased feature", Status: domain.ArticleStatusDraft},
	}})

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), nil, config.AppConfig{RequestTimeoutSeconds: 1})
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk-service", "test", nil, nil),
		Tickets:        handlers.NewTicketsHandler(ticketService, slaService),
		Articles:       handlers.NewArticlesHandler(articleService),
		Feed:           handlers.NewFeedHandler(dispatcher, nil, time.Second, nil),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, agents, customers),
	})
	return &testServer{app: app, tokens: tokens}
}

func (s *testServer) token(t *testing.T, subjectID string, subject domain.SubjectType) string {
	t.Helper()
	token, _, err := s.tokens.GenerateToken(subjectID, subject, nil)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return token
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, env
}

func TestAgentRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)
	customer := srv.token(t, "cust-1", domain.SubjectTypeCustomer)
	employee := srv.token(t, "emp-1", domain.SubjectTypeAgent)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		status int
		code   string
	}{
		{"no token", http.MethodGet, "/tickets", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage token", http.MethodGet, "/tickets", "nope", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"customer on agent route", http.MethodGet, "/tickets", customer, http.StatusForbidden, "FORBIDDEN"},
		{"employee on admin route", http.MethodPost, "/team", employee, http.StatusForbidden, "FORBIDDEN"},
		{"agent on customer route", http.MethodGet, "/me/tickets", employee, http.StatusForbidden, "FORBIDDEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := srv.do(t, tc.method, tc.path, tc.token, "")
			if status != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, status)
			}
			if env.Error == nil || env.Error.Code != tc.code {
				t.Fatalf("expected error code %s, got %+v", tc.code, env.Error)
			}
		})
	}
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	agent := srv.token(t, "emp-1", domain.SubjectTypeAgent)

	status, env := srv.do(t, http.MethodPost, "/tickets", agent, `{"customer_id":"cust-1","title":"Printer on fire","priority":"high"}`)
	if status != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%+v)", status, env.Error)
	}
	var created struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Priority string `json:"priority"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode ticket: %v", err)
	}
	if created.Status != "OPEN" || created.Priority != "HIGH" {
		t.Fatalf("unexpected ticket %+v", created)
	}

	status, env = srv.do(t, http.MethodPatch, "/tickets/"+created.ID+"/status", agent, `{"status":"resolved"}`)
	if status != http.StatusOK {
		t.Fatalf("status: expected 200, got %d (%+v)", status, env.Error)
	}
	var resolved struct {
		Status      string     `json:"status"`
		StatusLabel string     `json:"status_label"`
		ResolvedAt  *time.Time `json:"resolved_at"`
	}
	if err := json.Unmarshal(env.Data, &resolved); err != nil {
		t.Fatalf("decode ticket: %v", err)
	}
	if resolved.Status != "RESOLVED" || resolved.StatusLabel != "Resolved" || resolved.ResolvedAt == nil {
		t.Fatalf("unexpected resolved ticket %+v", resolved)
	}

	status, env = srv.do(t, http.MethodPatch, "/tickets/"+created.ID+"/status", agent, `{"status":"sideways"}`)
	if status != http.StatusBadRequest || env.Error == nil || env.Error.Code != "VALIDATION_FAILED" {
		t.Fatalf("expected validation failure, got %d %+v", status, env.Error)
	}

	status, env = srv.do(t, http.MethodGet, "/tickets/"+created.ID+"/sla", agent, "")
	if status != http.StatusOK || string(env.Data) != "null" {
		t.Fatalf("expected null sla, got %d %s", status, env.Data)
	}

	status, env = srv.do(t, http.MethodGet, "/tickets/missing", agent, "")
	if status != http.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected not found, got %d %+v", status, env.Error)
	}

	customer := srv.token(t, "cust-1", domain.SubjectTypeCustomer)
	status, env = srv.do(t, http.MethodGet, "/me/tickets", customer, "")
	if status != http.StatusOK {
		t.Fatalf("my tickets: expected 200, got %d", status)
	}
	var mine []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &mine); err != nil {
		t.Fatalf("decode tickets: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != created.ID {
		t.Fatalf("expected the customer's ticket, got %+v", mine)
	}
}

func TestKnowledgeBaseHidesDrafts(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(t, http.MethodGet, "/kb/articles", "", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	var articles []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &articles); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(articles) != 1 || articles[0].ID != "kb-1" {
		t.Fatalf("expected only the published article, got %+v", articles)
	}

	status, _ = srv.do(t, http.MethodGet, "/kb/articles/kb-2", "", "")
	if status != http.StatusNotFound {
		t.Fatalf("draft must be hidden, got %d", status)
	}

	agent := srv.token(t, "emp-1", domain.SubjectTypeAgent)
	status, _ = srv.do(t, http.MethodGet, "/articles/kb-2", agent, "")
	if status != http.StatusOK {
		t.Fatalf("agents see drafts, got %d", status)
	}
}

func TestFeedRequiresUpgrade(t *testing.T) {
	srv := newTestServer(t)
	agent := srv.token(t, "emp-1", domain.SubjectTypeAgent)

	status, env := srv.do(t, http.MethodGet, "/ws", agent, "")
	if status != http.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d (%+v)", status, env.Error)
	}

	req := httptest.NewRequest(http.MethodGet, "/ws?access_token=bogus", nil)
	resp, err := srv.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad query token, got %d", resp.StatusCode)
	}
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestReadiness(t *testing.T) {
	cases := []struct {
		name     string
		postgres handlers.Pinger
		redis    handlers.Pinger
		status   int
		want     string
	}{
		{"all up", pinger{}, pinger{}, http.StatusOK, "ready"},
		{"redis down", pinger{}, pinger{err: fmt.Errorf("connection refused")}, http.StatusOK, "degraded"},
		{"postgres down", pinger{err: fmt.Errorf("connection refused")}, pinger{}, http.StatusServiceUnavailable, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			health := handlers.NewHealthHandler("helpdesk-service", "test", tc.postgres, tc.redis)
			app.Get("/health/ready", health.Ready)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil), -1)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			var body struct {
				Status string `json:"status"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tc.want {
				t.Fatalf("expected status %q, got %q", tc.want, body.Status)
			}
		})
	}
}
