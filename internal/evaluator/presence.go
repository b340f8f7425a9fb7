package evaluator

import (
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// DefaultPresenceWindow is how recently an agent must have been seen to count as online.
const DefaultPresenceWindow = 5 * time.Minute

// AgentSort selects the team list ordering.
type AgentSort string

const (
	SortByName   AgentSort = "name"
	SortByStatus AgentSort = "status"
)

// IsOnline reports whether lastSeen falls within the window before now.
func IsOnline(lastSeen *time.Time, now time.Time, window time.Duration) bool {
	if lastSeen == nil || lastSeen.IsZero() {
		return false
	}
	if window <= 0 {
		window = DefaultPresenceWindow
	}
	return now.Sub(*lastSeen) < window
}

// CountOnline counts agents seen within the window.
func CountOnline(agents []domain.Agent, now time.Time, window time.Duration) int {
	count := 0
	for i := range agents {
		if IsOnline(agents[i].LastSeen, now, window) {
			count++
		}
	}
	return count
}

// FilterAgents keeps agents whose name or email contains the query.
func FilterAgents(agents []domain.Agent, query string) []domain.Agent {
	q := key(query)
	out := make([]domain.Agent, 0, len(agents))
	for _, a := range agents {
		if q == "" || strings.Contains(strings.ToLower(a.Name), q) || strings.Contains(strings.ToLower(a.Email), q) {
			out = append(out, a)
		}
	}
	return out
}

// SortAgents orders agents by name, or online agents first when sorting by status.
func SortAgents(agents []domain.Agent, by AgentSort, now time.Time, window time.Duration) {
	sort.SliceStable(agents, func(i, j int) bool {
		if by == SortByStatus {
			oi, oj := IsOnline(agents[i].LastSeen, now, window), IsOnline(agents[j].LastSeen, now, window)
			if oi != oj {
				return oi
			}
		}
		return strings.ToLower(agents[i].Name) < strings.ToLower(agents[j].Name)
	})
}
