package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/and161185/flasheng/internal/errs"
	"github.com/and161185/flasheng/internal/listquery"
	"github.com/and161185/flasheng/internal/model"
	"github.com/and161185/flasheng/internal/notify"
	"github.com/and161185/flasheng/internal/validate"
)

// Article list sort keys.
const (
	SortByName      = "name"
	SortByPrice     = "price"
	SortByCreatedAt = "createdAt"
)

// ArticleQuery is the catalog list state.
type ArticleQuery = listquery.State[listquery.PriceRange]

// ArticleService covers the catalog and its admin CRUD.
type ArticleService interface {
	// List returns a catalog page.
	List(ctx context.Context, q ArticleQuery) (model.Page[model.Article], error)
	// AdminList returns the admin view of the catalog.
	AdminList(ctx context.Context, q ArticleQuery) (model.Page[model.Article], error)
	Create(ctx context.Context, a model.Article) (model.Article, error)
	Update(ctx context.Context, id int64, a model.Article) (model.Article, error)
	Delete(ctx context.Context, id int64) error
}

type ArticleServiceImpl struct {
	api    API
	v      *validate.Validator
	notify notify.Notifier
	form   validate.Submission
}

// NewArticleService constructs ArticleService.
func NewArticleService(api API, v *validate.Validator, n notify.Notifier) *ArticleServiceImpl {
	return &ArticleServiceImpl{api: api, v: v, notify: orNop(n)}
}

// DefaultArticleQuery is the catalog's initial state.
func DefaultArticleQuery(size int) ArticleQuery {
	if size <= 0 {
		size = 12
	}
	return ArticleQuery{SortBy: SortByName, SortDir: "asc", PageSize: size}
}

func (s *ArticleServiceImpl) List(ctx context.Context, q ArticleQuery) (model.Page[model.Article], error) {
	var page model.Page[model.Article]
	if err := s.api.JSON(ctx, http.MethodGet, "/articles", queryOf(q), nil, &page); err != nil {
		return page, fmt.Errorf("list articles: %w", err)
	}
	return page, nil
}

func (s *ArticleServiceImpl) AdminList(ctx context.Context, q ArticleQuery) (model.Page[model.Article], error) {
	var page model.Page[model.Article]
	if err := s.api.JSON(ctx, http.MethodGet, "/admin/articles", queryOf(q), nil, &page); err != nil {
		if errs.Classify(err) == errs.KindForbidden {
			s.notify.Error("Access denied. Admin privileges required.")
		}
		return page, fmt.Errorf("admin list articles: %w", err)
	}
	return page, nil
}

// Create validates the form and creates the article.
func (s *ArticleServiceImpl) Create(ctx context.Context, a model.Article) (model.Article, error) {
	a, err := s.v.Article(a)
	if err != nil {
		return model.Article{}, err
	}
	a.ID = 0
	if err := s.form.Begin(); err != nil {
		return model.Article{}, err
	}
	defer s.form.End()
	var out model.Article
	if err := s.api.JSON(ctx, http.MethodPost, "/admin/articles", nil, a, &out); err != nil {
		s.notify.Error(errs.Message(err, "Failed to create article"))
		return model.Article{}, fmt.Errorf("create article: %w", err)
	}
	s.notify.Success("Article created successfully!")
	return out, nil
}

// Update validates the form and replaces article id.
func (s *ArticleServiceImpl) Update(ctx context.Context, id int64, a model.Article) (model.Article, error) {
	a, err := s.v.Article(a)
	if err != nil {
		return model.Article{}, err
	}
	a.ID = id
	if err := s.form.Begin(); err != nil {
		return model.Article{}, err
	}
	defer s.form.End()
	var out model.Article
	if err := s.api.JSON(ctx, http.MethodPut, idPath("/admin/articles", id), nil, a, &out); err != nil {
		s.notify.Error(errs.Message(err, "Failed to update article"))
		return model.Article{}, fmt.Errorf("update article %d: %w", id, err)
	}
	s.notify.Success("Article updated successfully!")
	return out, nil
}

func (s *ArticleServiceImpl) Delete(ctx context.Context, id int64) error {
	if err := s.api.JSON(ctx, http.MethodDelete, idPath("/admin/articles", id), nil, nil, nil); err != nil {
		s.notify.Error(errs.Message(err, "Failed to delete article"))
		return fmt.Errorf("delete article %d: %w", id, err)
	}
	s.notify.Success("Article deleted successfully!")
	return nil
}
