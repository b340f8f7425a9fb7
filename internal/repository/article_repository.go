package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ArticleFilter narrows knowledge-base listing. Search matches the title or
// any tag, case-insensitively.
type ArticleFilter struct {
	Search string
	Status *domain.ArticleStatus
}

// ArticleRepository persists knowledge-base articles.
type ArticleRepository interface {
	Create(ctx context.Context, article *domain.Article) error
	Update(ctx context.Context, article *domain.Article) error
	GetByID(ctx context.Context, id string) (*domain.Article, error)
	List(ctx context.Context, filter ArticleFilter) ([]domain.Article, error)
	AddHelpfulness(ctx context.Context, id string, delta int) (int, error)
}

type articleRepository struct {
	pool *pgxpool.Pool
}

// NewArticleRepository instantiates the repository.
func NewArticleRepository(pool *pgxpool.Pool) ArticleRepository {
	return &articleRepository{pool: pool}
}

const articleColumns = `id, title, category, content, tags, status, helpfulness_score, created_at, updated_at`

func (r *articleRepository) Create(ctx context.Context, article *domain.Article) error {
	const query = `
        INSERT INTO articles (title, category, content, tags, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, helpfulness_score, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		article.Title,
		article.Category,
		article.Content,
		nonNilTags(article.Tags),
		article.Status.StorageValue(),
	).Scan(&article.ID, &article.HelpfulnessScore, &article.CreatedAt, &article.UpdatedAt)
}

func (r *articleRepository) Update(ctx context.Context, article *domain.Article) error {
	const query = `
        UPDATE articles SET title=$1, category=$2, content=$3, tags=$4, status=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		article.Title,
		article.Category,
		article.Content,
		nonNilTags(article.Tags),
		article.Status.StorageValue(),
		article.ID,
	).Scan(&article.UpdatedAt)
}

func (r *articleRepository) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id=$1`
	article, err := scanArticle(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// List returns articles ordered by title.
func (r *articleRepository) List(ctx context.Context, filter ArticleFilter) ([]domain.Article, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Status != nil {
		args = append(args, filter.Status.StorageValue())
		clauses = append(clauses, fmt.Sprintf("LOWER(status)=LOWER($%d)", len(args)))
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		args = append(args, "%"+term+"%")
		p := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(title) LIKE $%d OR EXISTS (SELECT 1 FROM unnest(tags) t WHERE LOWER(t) LIKE $%d))", p, p))
	}
	query := fmt.Sprintf(`SELECT %s FROM articles WHERE %s ORDER BY title`, articleColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, article)
	}
	return result, rows.Err()
}

// AddHelpfulness adjusts the helpfulness score and returns the new value.
func (r *articleRepository) AddHelpfulness(ctx context.Context, id string, delta int) (int, error) {
	var score int
	err := r.pool.QueryRow(ctx,
		`UPDATE articles SET helpfulness_score = helpfulness_score + $1 WHERE id=$2 RETURNING helpfulness_score`,
		delta, id,
	).Scan(&score)
	return score, err
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func scanArticle(row pgx.Row) (domain.Article, error) {
	var (
		article domain.Article
		status  string
	)
	if err := row.Scan(
		&article.ID,
		&article.Title,
		&article.Category,
		&article.Content,
		&article.Tags,
		&status,
		&article.HelpfulnessScore,
		&article.CreatedAt,
		&article.UpdatedAt,
	); err != nil {
		return domain.Article{}, err
	}
	article.Status = domain.ParseArticleStatus(status)
	return article, nil
}
