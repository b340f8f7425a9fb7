package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type supportFixture struct {
	svc       *SupportService
	chat      chatFixture
	customers *fakeCustomerRepo
}

func newSupportFixture(customers ...domain.Customer) supportFixture {
	chat := newChatFixture(time.Now(), nil)
	f := supportFixture{chat: chat, customers: newFakeCustomerRepo(customers...)}
	ticketSvc := NewTicketService(TicketDependencies{TicketRepo: chat.tickets, Dispatcher: chat.events})
	f.svc = NewSupportService(SupportDependencies{
		SessionRepo:   chat.sessions,
		CustomerRepo:  f.customers,
		TicketService: ticketSvc,
		ChatService:   chat.svc,
		Dispatcher:    chat.events,
	})
	return f
}

func TestSupportWidgetFlow(t *testing.T) {
	f := newSupportFixture()
	ctx := context.Background()

	session, err := f.svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.Status != domain.SessionStatusWaiting || session.CustomerID != "" {
		t.Fatalf("unexpected session %+v", session)
	}

	if _, err := f.svc.PostMessage(ctx, session.ID, "My order never arrived"); err != nil {
		t.Fatalf("post: %v", err)
	}

	if _, err := f.svc.SubmitIssue(ctx, session.ID, "My order never arrived", "not-an-email"); errorCode(err) != "VALIDATION_FAILED" {
		t.Fatalf("expected email validation error, got %v", err)
	}

	receipt, err := f.svc.SubmitIssue(ctx, session.ID, "My order never arrived", " Jane@Example.com ")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if receipt.Ticket.Priority != domain.TicketPriorityLow || receipt.Ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("unexpected ticket %+v", receipt.Ticket)
	}
	if receipt.Customer.Name != GuestCustomerName || receipt.Customer.Email != "jane@example.com" {
		t.Fatalf("unexpected customer %+v", receipt.Customer)
	}
	stored, _ := f.chat.sessions.GetByID(ctx, session.ID)
	if stored.TicketID == nil || *stored.TicketID != receipt.Ticket.ID || stored.CustomerID != receipt.Customer.ID {
		t.Fatalf("session not linked: %+v", stored)
	}

	view, err := f.svc.TicketStatus(ctx, receipt.Ticket.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if view.SessionID != session.ID || len(view.Transcript) != 3 {
		t.Fatalf("unexpected transcript %+v", view.Transcript)
	}
	if view.Transcript[0].Content != BotWelcomeMessage || view.Transcript[1].SenderType != domain.SenderCustomer {
		t.Fatalf("unexpected transcript order %+v", view.Transcript)
	}
	if !strings.HasPrefix(view.Transcript[2].Content, BotSuccessMessage) {
		t.Fatalf("missing success message: %+v", view.Transcript[2])
	}
}

func TestBotFollowUpsAfterTicket(t *testing.T) {
	f := newSupportFixture()
	ctx := context.Background()

	session, err := f.svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.svc.SubmitIssue(ctx, session.ID, "Refund missing", "sam@example.com"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	for _, text := range []string{"It was order 1182", "Paid by card"} {
		if _, err := f.svc.PostMessage(ctx, session.ID, text); err != nil {
			t.Fatalf("post %q: %v", text, err)
		}
	}
	transcript, err := f.chat.svc.Messages(ctx, session.ID)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(transcript) != 6 {
		t.Fatalf("expected welcome, success and two exchanges, got %d: %+v", len(transcript), transcript)
	}
	wantTail := []struct {
		sender  domain.SenderType
		content string
	}{
		{domain.SenderCustomer, "It was order 1182"},
		{domain.SenderBot, BotFollowUps[0]},
		{domain.SenderCustomer, "Paid by card"},
		{domain.SenderBot, BotFollowUps[1]},
	}
	for i, want := range wantTail {
		got := transcript[2+i]
		if got.SenderType != want.sender || got.Content != want.content {
			t.Fatalf("message %d = %s %q, want %s %q", 2+i, got.SenderType, got.Content, want.sender, want.content)
		}
	}

	agentID := "agent-7"
	stored, _ := f.chat.sessions.GetByID(ctx, session.ID)
	stored.AgentID = &agentID
	_ = f.chat.sessions.Update(ctx, stored)
	if _, err := f.svc.PostMessage(ctx, session.ID, "Any news?"); err != nil {
		t.Fatalf("post after takeover: %v", err)
	}
	transcript, _ = f.chat.svc.Messages(ctx, session.ID)
	if last := transcript[len(transcript)-1]; last.SenderType != domain.SenderCustomer {
		t.Fatalf("bot must stay quiet after agent takeover, last=%+v", last)
	}
}

func TestSubmitIssueReusesCustomer(t *testing.T) {
	f := newSupportFixture(domain.Customer{ID: "c-known", Name: "Known", Email: "known@example.com"})
	ctx := context.Background()

	session, err := f.svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	receipt, err := f.svc.SubmitIssue(ctx, session.ID, "Broken", "known@example.com")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if receipt.Customer.ID != "c-known" || len(f.customers.customers) != 1 {
		t.Fatalf("expected existing customer to be reused, got %+v", receipt.Customer)
	}
}

func TestTicketStatusWithoutSession(t *testing.T) {
	f := newSupportFixture()
	ctx := context.Background()
	ticket := &domain.Ticket{Title: "Email only", CustomerID: "c1"}
	_ = f.chat.tickets.Create(ctx, ticket)

	view, err := f.svc.TicketStatus(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if view.SessionID != "" || len(view.Transcript) != 0 {
		t.Fatalf("expected no transcript, got %+v", view)
	}
	if _, err := f.svc.TicketStatus(ctx, "missing"); errorCode(err) != "NOT_FOUND" {
		t.Fatalf("expected not found, got %v", err)
	}
}
