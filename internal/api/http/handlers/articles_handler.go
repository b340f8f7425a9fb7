package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// ArticlesHandler serves the knowledge base, both the agent editor routes
// and the public /kb routes.
type ArticlesHandler struct {
	service *service.ArticleService
}

// NewArticlesHandler constructs handler.
func NewArticlesHandler(articleService *service.ArticleService) *ArticlesHandler {
	return &ArticlesHandler{service: articleService}
}

// List GET /articles.
func (h *ArticlesHandler) List(c *fiber.Ctx) error {
	return h.list(c, false)
}

// Get GET /articles/:id.
func (h *ArticlesHandler) Get(c *fiber.Ctx) error {
	return h.get(c, false)
}

// Create POST /articles.
func (h *ArticlesHandler) Create(c *fiber.Ctx) error {
	_, actor, err := currentAgent(c)
	if err != nil {
		return err
	}
	input, err := parseArticleInput(c)
	if err != nil {
		return err
	}
	article, err := h.service.Create(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": articleResponse(article)})
}

// Update PUT /articles/:id.
func (h *ArticlesHandler) Update(c *fiber.Ctx) error {
	_, actor, err := currentAgent(c)
	if err != nil {
		return err
	}
	input, err := parseArticleInput(c)
	if err != nil {
		return err
	}
	article, err := h.service.Update(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": articleResponse(article)})
}

// Publish POST /articles/:id/publish.
func (h *ArticlesHandler) Publish(c *fiber.Ctx) error {
	_, actor, err := currentAgent(c)
	if err != nil {
		return err
	}
	article, err := h.service.Publish(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": articleResponse(article)})
}

// PublicList GET /kb/articles.
func (h *ArticlesHandler) PublicList(c *fiber.Ctx) error {
	return h.list(c, true)
}

// PublicGet GET /kb/articles/:id.
func (h *ArticlesHandler) PublicGet(c *fiber.Ctx) error {
	return h.get(c, true)
}

// Vote POST /kb/articles/:id/vote.
func (h *ArticlesHandler) Vote(c *fiber.Ctx) error {
	var req dto.VoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	score, err := h.service.Vote(c.UserContext(), c.Params("id"), req.Helpful)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"helpfulness_score": score}})
}

func (h *ArticlesHandler) list(c *fiber.Ctx, publishedOnly bool) error {
	articles, err := h.service.List(c.UserContext(), c.Query("q"), publishedOnly)
	if err != nil {
		return err
	}
	items := make([]dto.ArticleResponse, 0, len(articles))
	for i := range articles {
		items = append(items, articleResponse(&articles[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func (h *ArticlesHandler) get(c *fiber.Ctx, publishedOnly bool) error {
	article, err := h.service.Get(c.UserContext(), c.Params("id"), publishedOnly)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": articleResponse(article)})
}

func parseArticleInput(c *fiber.Ctx) (service.ArticleInput, error) {
	var req dto.ArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return service.ArticleInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	return service.ArticleInput{
		Title:    req.Title,
		Category: req.Category,
		Content:  req.Content,
		Tags:     req.Tags,
	}, nil
}

func articleResponse(article *domain.Article) dto.ArticleResponse {
	tags := article.Tags
	if tags == nil {
		tags = []string{}
	}
	return dto.ArticleResponse{
		ID:               article.ID,
		Title:            article.Title,
		Category:         article.Category,
		Content:          article.Content,
		Tags:             tags,
		Status:           article.Status,
		HelpfulnessScore: article.HelpfulnessScore,
		CreatedAt:        article.CreatedAt,
		UpdatedAt:        article.UpdatedAt,
	}
}
