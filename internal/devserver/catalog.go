package devserver

import (
	"cmp"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/and161185/flasheng/internal/model"
)

var articleOrder = map[string]func(a, b model.Article) int{
	"name":              func(a, b model.Article) int { return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) },
	"price":             func(a, b model.Article) int { return a.Price.Cmp(b.Price) },
	"createdAt":         func(a, b model.Article) int { return cmp.Compare(a.CreatedAt, b.CreatedAt) },
	"availableQuantity": func(a, b model.Article) int { return cmp.Compare(a.AvailableQuantity, b.AvailableQuantity) },
	"id":                func(a, b model.Article) int { return cmp.Compare(a.ID, b.ID) },
}

var flashcardOrder = map[string]func(a, b model.Flashcard) int{
	"englishWord": func(a, b model.Flashcard) int {
		return cmp.Compare(strings.ToLower(a.EnglishWord), strings.ToLower(b.EnglishWord))
	},
	"translation": func(a, b model.Flashcard) int {
		return cmp.Compare(strings.ToLower(a.Translation), strings.ToLower(b.Translation))
	},
	"category":   func(a, b model.Flashcard) int { return cmp.Compare(a.Category, b.Category) },
	"difficulty": func(a, b model.Flashcard) int { return cmp.Compare(a.Difficulty, b.Difficulty) },
	"createdAt":  func(a, b model.Flashcard) int { return cmp.Compare(a.CreatedAt, b.CreatedAt) },
	"id":         func(a, b model.Flashcard) int { return cmp.Compare(a.ID, b.ID) },
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func decimalParam(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	return d, err == nil
}

// listArticles serves both /articles and /admin/articles.
func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	p := parseList(r, 12)
	minPrice, hasMin := decimalParam(p.Query.Get("minPrice"))
	maxPrice, hasMax := decimalParam(p.Query.Get("maxPrice"))

	all := s.db.articleList()
	out := all[:0]
	for _, a := range all {
		if p.Search != "" && !contains(a.Name, p.Search) && !contains(a.Description, p.Search) {
			continue
		}
		if hasMin && a.Price.LessThan(minPrice) {
			continue
		}
		if hasMax && a.Price.GreaterThan(maxPrice) {
			continue
		}
		out = append(out, a)
	}
	sortBy(out, articleOrder, p.SortBy, "id", p.SortDir)
	writeJSON(w, http.StatusOK, paginate(out, p))
}

func (s *Server) createArticle(w http.ResponseWriter, r *http.Request) {
	var a model.Article
	if err := decodeJSON(r, &a); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.v.Article(a)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a.ID, a.CreatedAt = 0, s.stamp()
	writeJSON(w, http.StatusCreated, s.db.putArticle(a))
}

func (s *Server) updateArticle(w http.ResponseWriter, r *http.Request) {
	var a model.Article
	if err := decodeJSON(r, &a); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.v.Article(a)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.db.updateArticle(pathID(r), a)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteArticle(w http.ResponseWriter, r *http.Request) {
	if err := s.db.deleteArticle(pathID(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listFlashcards(w http.ResponseWriter, r *http.Request) {
	p := parseList(r, 12)
	category, difficulty := p.Query.Get("category"), p.Query.Get("difficulty")

	all := s.db.flashcardList()
	out := all[:0]
	for _, f := range all {
		if p.Search != "" && !contains(f.EnglishWord, p.Search) && !contains(f.Translation, p.Search) {
			continue
		}
		if category != "" && !strings.EqualFold(f.Category, category) {
			continue
		}
		if difficulty != "" && !strings.EqualFold(f.Difficulty, difficulty) {
			continue
		}
		out = append(out, f)
	}
	sortBy(out, flashcardOrder, p.SortBy, "id", p.SortDir)
	writeJSON(w, http.StatusOK, paginate(out, p))
}

func (s *Server) createFlashcard(w http.ResponseWriter, r *http.Request) {
	var f model.Flashcard
	if err := decodeJSON(r, &f); err != nil {
		s.fail(w, r, err)
		return
	}
	f, err := s.v.Flashcard(f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	f.ID, f.CreatedAt = 0, s.stamp()
	writeJSON(w, http.StatusCreated, s.db.putFlashcard(f))
}

func (s *Server) updateFlashcard(w http.ResponseWriter, r *http.Request) {
	var f model.Flashcard
	if err := decodeJSON(r, &f); err != nil {
		s.fail(w, r, err)
		return
	}
	f, err := s.v.Flashcard(f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.db.updateFlashcard(pathID(r), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteFlashcard(w http.ResponseWriter, r *http.Request) {
	if err := s.db.deleteFlashcard(pathID(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
