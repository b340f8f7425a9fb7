package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ArticleRequest payload for create and update.
type ArticleRequest struct {
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
}

// VoteRequest payload.
type VoteRequest struct {
	Helpful bool `json:"helpful"`
}

// ArticleResponse represents a knowledge-base article.
type ArticleResponse struct {
	ID               string               `json:"id"`
	Title            string               `json:"title"`
	Category         string               `json:"category"`
	Content          string               `json:"content"`
	Tags             []string             `json:"tags"`
	Status           domain.ArticleStatus `json:"status"`
	HelpfulnessScore int                  `json:"helpfulness_score"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}
