package domain

import (
	"strings"
	"time"
)

// AgentRole enumerates internal operator roles.
type AgentRole string

const (
	AgentRoleEmployee AgentRole = "EMPLOYEE"
	AgentRoleAdmin    AgentRole = "ADMIN"
)

// Agent models a support employee or administrator.
type Agent struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AgentRole
	LastSeen     *time.Time
	Deleted      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ParseAgentRole maps a stored role. Anything other than ADMIN is an employee.
func ParseAgentRole(raw string) AgentRole {
	if strings.EqualFold(strings.TrimSpace(raw), string(AgentRoleAdmin)) {
		return AgentRoleAdmin
	}
	return AgentRoleEmployee
}
