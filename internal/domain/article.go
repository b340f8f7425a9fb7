package domain

import (
	"strings"
	"time"
)

// ArticleStatus marks whether a knowledge-base article is visible to customers.
type ArticleStatus string

const (
	ArticleStatusDraft     ArticleStatus = "DRAFT"
	ArticleStatusPublished ArticleStatus = "PUBLISHED"
)

// Article is a self-service knowledge-base entry.
type Article struct {
	ID               string
	Title            string
	Category         string
	Content          string
	Tags             []string
	Status           ArticleStatus
	HelpfulnessScore int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// StorageValue returns the value persisted in the articles table.
func (s ArticleStatus) StorageValue() string {
	if s == ArticleStatusPublished {
		return "Published"
	}
	return "Draft"
}

// ParseArticleStatus maps a stored or requested status. Anything other than
// "published" is a draft.
func ParseArticleStatus(raw string) ArticleStatus {
	if strings.EqualFold(strings.TrimSpace(raw), "published") {
		return ArticleStatusPublished
	}
	return ArticleStatusDraft
}
