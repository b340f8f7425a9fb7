package evaluator

import (
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// InboxMode selects which sessions the agent inbox shows.
type InboxMode string

const (
	InboxAll       InboxMode = "all"
	InboxMine      InboxMode = "mine"
	InboxUnreplied InboxMode = "unreplied"
	InboxClosed    InboxMode = "closed"
)

// ParseInboxMode maps a query value onto an InboxMode, defaulting to all.
func ParseInboxMode(raw string) InboxMode {
	switch InboxMode(key(raw)) {
	case InboxMine:
		return InboxMine
	case InboxUnreplied:
		return InboxUnreplied
	case InboxClosed:
		return InboxClosed
	default:
		return InboxAll
	}
}

// SessionFilter narrows the inbox before ordering.
type SessionFilter struct {
	Search        string
	Mode          InboxMode
	CurrentUserID string
}

// IsUnreplied reports whether the customer spoke last.
func IsUnreplied(s domain.ChatSession) bool {
	return s.LastMessageSender == domain.SenderCustomer
}

func isAssignedTo(s domain.ChatSession, userID string) bool {
	return userID != "" && s.AgentID != nil && *s.AgentID == userID
}

// lastActivity is the later of the last message time and the start time.
func lastActivity(s domain.ChatSession) time.Time {
	if s.LastMessageAt != nil && s.LastMessageAt.After(s.StartedAt) {
		return *s.LastMessageAt
	}
	return s.StartedAt
}

// CompareSessions orders two sessions for the agent inbox: sessions assigned
// to the current user first, then waiting sessions, then unreplied sessions,
// then the most recently active. It returns -1, 0 or 1.
func CompareSessions(a, b domain.ChatSession, currentUserID string) int {
	if c := preferTrue(isAssignedTo(a, currentUserID), isAssignedTo(b, currentUserID)); c != 0 {
		return c
	}
	if c := preferTrue(a.Status == domain.SessionStatusWaiting, b.Status == domain.SessionStatusWaiting); c != 0 {
		return c
	}
	if c := preferTrue(IsUnreplied(a), IsUnreplied(b)); c != 0 {
		return c
	}
	at, bt := lastActivity(a), lastActivity(b)
	switch {
	case at.After(bt):
		return -1
	case bt.After(at):
		return 1
	default:
		return 0
	}
}

func preferTrue(a, b bool) int {
	switch {
	case a && !b:
		return -1
	case !a && b:
		return 1
	default:
		return 0
	}
}

// SortSessions orders sessions in place. The sort is stable so equal
// sessions keep the store's fetch order.
func SortSessions(sessions []domain.ChatSession, currentUserID string) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return CompareSessions(sessions[i], sessions[j], currentUserID) < 0
	})
}

// FilterSessions returns the sessions matching the filter without modifying
// the input. The closed mode shows only closed sessions; every other mode
// hides them.
func FilterSessions(sessions []domain.ChatSession, filter SessionFilter) []domain.ChatSession {
	query := key(filter.Search)
	out := make([]domain.ChatSession, 0, len(sessions))
	for _, s := range sessions {
		if query != "" &&
			!strings.Contains(strings.ToLower(s.CustomerID), query) &&
			!strings.Contains(strings.ToLower(string(s.Status)), query) {
			continue
		}
		closed := s.Status == domain.SessionStatusClosed
		switch filter.Mode {
		case InboxClosed:
			if !closed {
				continue
			}
		case InboxMine:
			if closed || !isAssignedTo(s, filter.CurrentUserID) {
				continue
			}
		case InboxUnreplied:
			if closed || !IsUnreplied(s) {
				continue
			}
		default:
			if closed {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

// Inbox filters then orders a copy of the sessions.
func Inbox(sessions []domain.ChatSession, filter SessionFilter) []domain.ChatSession {
	out := FilterSessions(sessions, filter)
	SortSessions(out, filter.CurrentUserID)
	return out
}

// NextSessionStatus applies a message to the session state machine:
// Waiting --agent reply--> Active --end--> Closed. A customer message puts an
// active session back in the waiting queue. Closed is terminal.
func NextSessionStatus(current domain.SessionStatus, sender domain.SenderType, ended bool) domain.SessionStatus {
	if current == domain.SessionStatusClosed || ended {
		return domain.SessionStatusClosed
	}
	switch sender {
	case domain.SenderAgent:
		return domain.SessionStatusActive
	case domain.SenderCustomer:
		return domain.SessionStatusWaiting
	default:
		return current
	}
}

// DeleteIntent records a requested session deletion that the store has not
// yet confirmed.
type DeleteIntent struct {
	SessionID string
	Index     int
}

// PlanSessionDelete locates the session to delete without touching the slice.
func PlanSessionDelete(sessions []domain.ChatSession, sessionID string) (DeleteIntent, bool) {
	for i, s := range sessions {
		if s.ID == sessionID {
			return DeleteIntent{SessionID: sessionID, Index: i}, true
		}
	}
	return DeleteIntent{}, false
}

// ApplyDelete returns a new slice without the intended session. Call it only
// after the store confirmed the deletion.
func ApplyDelete(sessions []domain.ChatSession, intent DeleteIntent) []domain.ChatSession {
	out := make([]domain.ChatSession, 0, len(sessions))
	for _, s := range sessions {
		if s.ID != intent.SessionID {
			out = append(out, s)
		}
	}
	return out
}
