package service

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

func TestNotificationServiceFiltersAndUnsubscribes(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	ns := NewNotificationService(dispatcher, logger, config.NotificationConfig{EmailFrom: "helpdesk@example.com"})
	ns.RegisterHandlers()

	publish := func(sender domain.SenderType) {
		_ = dispatcher.Publish(context.Background(), events.Event{
			Type:     events.EventMessageAdded,
			EntityID: "m1",
			Payload:  events.MessageAddedPayload{SessionID: "s1", SenderType: sender, BodyPreview: "hello"},
		})
	}

	publish(domain.SenderAgent)
	if n := logs.FilterMessage("CustomerMessage").Len(); n != 0 {
		t.Fatalf("agent messages must not notify, got %d", n)
	}
	publish(domain.SenderCustomer)
	if n := logs.FilterMessage("CustomerMessage").Len(); n != 1 {
		t.Fatalf("expected one customer notification, got %d", n)
	}
	if n := logs.FilterMessage("sendEmailNotificationStub").Len(); n != 1 {
		t.Fatalf("expected one email stub call, got %d", n)
	}

	_ = dispatcher.Publish(context.Background(), events.Event{Type: events.EventSLABreached, EntityID: "t1"})
	if n := logs.FilterMessage("SLABreached").Len(); n != 1 {
		t.Fatalf("expected breach notification, got %d", n)
	}

	ns.Close()
	publish(domain.SenderCustomer)
	if n := logs.FilterMessage("CustomerMessage").Len(); n != 1 {
		t.Fatalf("closed service must not notify, got %d", n)
	}
}
