package devserver

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/flasheng/internal/crypto"
	"github.com/and161185/flasheng/internal/model"
	"github.com/and161185/flasheng/internal/validate"
)

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

// seed creates the admin account and a generated catalog.
func (s *Server) seed() error {
	if s.cfg.AdminEmail != "" {
		hash, err := pkgcrypto.HashPassword(s.cfg.AdminPassword, s.cfg.Hash)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if _, err := s.db.createAccount(account{
			Name: "Administrator", Email: s.cfg.AdminEmail, PwdHash: hash, IsAdmin: true, CreatedAt: s.now(),
		}); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	f := gofakeit.New(s.cfg.Seed)
	base := s.now().Add(-30 * 24 * time.Hour)
	for i := range s.cfg.SeedArticles {
		a := s.db.putArticle(model.Article{
			Name:              truncate(f.ProductName(), 50),
			Description:       truncate(f.Sentence(12), 255),
			Price:             decimal.NewFromFloat(f.Price(1, 500)).Round(2),
			Currency:          "USD",
			AvailableQuantity: f.Number(0, 50),
			CreatedAt:         base.Add(time.Duration(i) * time.Hour).UTC().Format(time.RFC3339),
		})
		a.ImageURL = fmt.Sprintf("https://picsum.photos/seed/flasheng-%d/400/300.jpg", a.ID)
		s.db.putArticle(a)
	}
	for i := range s.cfg.SeedFlashcards {
		category := validate.Categories[i%len(validate.Categories)]
		s.db.putFlashcard(model.Flashcard{
			EnglishWord:     wordFor(f, category),
			Translation:     f.LoremIpsumWord(),
			Category:        category,
			Difficulty:      validate.Difficulties[f.Number(0, len(validate.Difficulties)-1)],
			Definition:      truncate(f.Sentence(8), 500),
			Example:         truncate(f.Sentence(6), 500),
			ExampleSentence: truncate(f.Sentence(6), 500),
			Price:           decimal.NewFromInt(int64(f.Number(1, 20))),
			CreatedAt:       base.Add(time.Duration(i) * time.Minute).UTC().Format(time.RFC3339),
		})
	}
	s.log.Info("catalog seeded",
		zap.Int("articles", s.cfg.SeedArticles),
		zap.Int("flashcards", s.cfg.SeedFlashcards),
	)
	return nil
}

func wordFor(f *gofakeit.Faker, category string) string {
	switch category {
	case "Animals":
		return f.Animal()
	case "Food":
		return f.Fruit()
	case "Nature":
		return f.Vegetable()
	case "Geography":
		return f.Country()
	case "Music", "Art":
		return f.Color()
	case "Business":
		return f.BuzzWord()
	default:
		return f.Word()
	}
}
