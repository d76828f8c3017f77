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

// FlashcardQuery is the flashcard list state.
type FlashcardQuery = listquery.State[listquery.CardFilters]

// FlashcardService covers browsing and editing flashcards.
type FlashcardService interface {
	List(ctx context.Context, q FlashcardQuery) (model.Page[model.Flashcard], error)
	Create(ctx context.Context, f model.Flashcard) (model.Flashcard, error)
	Update(ctx context.Context, id int64, f model.Flashcard) (model.Flashcard, error)
	Delete(ctx context.Context, id int64) error
}

type FlashcardServiceImpl struct {
	api    API
	v      *validate.Validator
	notify notify.Notifier
	form   validate.Submission
}

// NewFlashcardService constructs FlashcardService.
func NewFlashcardService(api API, v *validate.Validator, n notify.Notifier) *FlashcardServiceImpl {
	return &FlashcardServiceImpl{api: api, v: v, notify: orNop(n)}
}

// DefaultFlashcardQuery is the flashcard list's initial state.
func DefaultFlashcardQuery(size int) FlashcardQuery {
	if size <= 0 {
		size = 12
	}
	return FlashcardQuery{SortBy: "englishWord", SortDir: "asc", PageSize: size}
}

func (s *FlashcardServiceImpl) List(ctx context.Context, q FlashcardQuery) (model.Page[model.Flashcard], error) {
	var page model.Page[model.Flashcard]
	if err := s.api.JSON(ctx, http.MethodGet, "/flashcards", queryOf(q), nil, &page); err != nil {
		return page, fmt.Errorf("list flashcards: %w", err)
	}
	return page, nil
}

func (s *FlashcardServiceImpl) Create(ctx context.Context, f model.Flashcard) (model.Flashcard, error) {
	f, err := s.v.Flashcard(f)
	if err != nil {
		return model.Flashcard{}, err
	}
	f.ID = 0
	if err := s.form.Begin(); err != nil {
		return model.Flashcard{}, err
	}
	defer s.form.End()
	var out model.Flashcard
	if err := s.api.JSON(ctx, http.MethodPost, "/flashcards", nil, f, &out); err != nil {
		s.notify.Error(s.failure(err, "Failed to create flashcard"))
		return model.Flashcard{}, fmt.Errorf("create flashcard: %w", err)
	}
	s.notify.Success("Flashcard created successfully!")
	return out, nil
}

func (s *FlashcardServiceImpl) Update(ctx context.Context, id int64, f model.Flashcard) (model.Flashcard, error) {
	f, err := s.v.Flashcard(f)
	if err != nil {
		return model.Flashcard{}, err
	}
	f.ID = id
	if err := s.form.Begin(); err != nil {
		return model.Flashcard{}, err
	}
	defer s.form.End()
	var out model.Flashcard
	if err := s.api.JSON(ctx, http.MethodPut, idPath("/flashcards", id), nil, f, &out); err != nil {
		s.notify.Error(s.failure(err, "Failed to update flashcard"))
		return model.Flashcard{}, fmt.Errorf("update flashcard %d: %w", id, err)
	}
	s.notify.Success("Flashcard updated successfully!")
	return out, nil
}

func (s *FlashcardServiceImpl) Delete(ctx context.Context, id int64) error {
	if err := s.api.JSON(ctx, http.MethodDelete, idPath("/flashcards", id), nil, nil, nil); err != nil {
		s.notify.Error(s.failure(err, "Failed to delete flashcard"))
		return fmt.Errorf("delete flashcard %d: %w", id, err)
	}
	s.notify.Success("Flashcard deleted successfully!")
	return nil
}

func (s *FlashcardServiceImpl) failure(err error, fallback string) string {
	if errs.Classify(err) == errs.KindForbidden {
		return "Access denied. Admin privileges required."
	}
	return errs.Message(err, fallback)
}
