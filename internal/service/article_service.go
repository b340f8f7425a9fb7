package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// ArticleService manages the knowledge base.
type ArticleService struct {
	articles repository.ArticleRepository
	recorder recorder
}

// ArticleDependencies bundles collaborators for the article service.
type ArticleDependencies struct {
	ArticleRepo repository.ArticleRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// ArticleInput is the editable part of an article.
type ArticleInput struct {
	Title    string
	Category string
	Content  string
	Tags     []string
}

// NewArticleService constructs the service.
func NewArticleService(deps ArticleDependencies) *ArticleService {
	return &ArticleService{
		articles: deps.ArticleRepo,
		recorder: newRecorder(nil, deps.Dispatcher, deps.Logger, nil),
	}
}

// List returns articles ordered by title. publishedOnly restricts the result
// to what customers may read.
func (s *ArticleService) List(ctx context.Context, search string, publishedOnly bool) ([]domain.Article, error) {
	filter := repository.ArticleFilter{Search: strings.TrimSpace(search)}
	if publishedOnly {
		published := domain.ArticleStatusPublished
		filter.Status = &published
	}
	articles, err := s.articles.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return articles, nil
}

// Get loads one article. Drafts are hidden when publishedOnly is set.
func (s *ArticleService) Get(ctx context.Context, id string, publishedOnly bool) (*domain.Article, error) {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("article", map[string]any{"id": id})
		}
		return nil, fmt.Errorf("load article: %w", err)
	}
	if publishedOnly && article.Status != domain.ArticleStatusPublished {
		return nil, apperrors.NewNotFound("article", map[string]any{"id": id})
	}
	return article, nil
}

// Create stores a new draft.
func (s *ArticleService) Create(ctx context.Context, actor events.Actor, input ArticleInput) (*domain.Article, error) {
	article := &domain.Article{Status: domain.ArticleStatusDraft}
	if err := applyArticleInput(article, input); err != nil {
		return nil, err
	}
	if err := s.articles.Create(ctx, article); err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}
	s.recorder.publish(ctx, events.EventArticleChanged, article.ID, actor, nil)
	return article, nil
}

// Update replaces the editable fields of an article.
func (s *ArticleService) Update(ctx context.Context, actor events.Actor, id string, input ArticleInput) (*domain.Article, error) {
	article, err := s.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := applyArticleInput(article, input); err != nil {
		return nil, err
	}
	if err := s.articles.Update(ctx, article); err != nil {
		return nil, fmt.Errorf("update article: %w", err)
	}
	s.recorder.publish(ctx, events.EventArticleChanged, article.ID, actor, nil)
	return article, nil
}

// Publish makes an article visible to customers.
func (s *ArticleService) Publish(ctx context.Context, actor events.Actor, id string) (*domain.Article, error) {
	article, err := s.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if article.Status == domain.ArticleStatusPublished {
		return article, nil
	}
	article.Status = domain.ArticleStatusPublished
	if err := s.articles.Update(ctx, article); err != nil {
		return nil, fmt.Errorf("publish article: %w", err)
	}
	s.recorder.publish(ctx, events.EventArticleChanged, article.ID, actor, nil)
	return article, nil
}

// Vote adds one helpful or unhelpful vote and returns the new score.
func (s *ArticleService) Vote(ctx context.Context, id string, helpful bool) (int, error) {
	if _, err := s.Get(ctx, id, true); err != nil {
		return 0, err
	}
	delta := -1
	if helpful {
		delta = 1
	}
	score, err := s.articles.AddHelpfulness(ctx, id, delta)
	if err != nil {
		return 0, fmt.Errorf("vote article: %w", err)
	}
	return score, nil
}

func applyArticleInput(article *domain.Article, input ArticleInput) error {
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	details := map[string]any{}
	if title == "" {
		details["title"] = "required"
	}
	if content == "" {
		details["content"] = "required"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid article", details)
	}
	article.Title = title
	article.Content = content
	article.Category = strings.TrimSpace(input.Category)
	article.Tags = cleanTags(input.Tags)
	return nil
}

func cleanTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
