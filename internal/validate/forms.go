package validate

import (
	"strings"

	"github.com/and161185/flasheng/internal/model"
)

// Each form method returns the trimmed/normalized payload that should be
// sent, or errs.FieldErrors when submission must be blocked.

// Login validates the login form.
func (x *Validator) Login(c model.Credentials) (model.Credentials, error) {
	c.Email = strings.TrimSpace(c.Email)
	return c, x.Struct(c)
}

// Signup validates the registration form.
func (x *Validator) Signup(r model.SignupRequest) (model.SignupRequest, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	return r, x.Struct(r)
}

// ProfilePatch validates the session-scoped profile edit.
func (x *Validator) ProfilePatch(p model.ProfilePatch) (model.ProfilePatch, error) {
	p.FullName = strings.TrimSpace(p.FullName)
	p.Email = strings.TrimSpace(p.Email)
	return p, x.Struct(p)
}

// Profile validates the /profile edit form.
func (x *Validator) Profile(p model.ProfileUpdate) (model.ProfileUpdate, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	return p, x.Struct(p)
}

// Password validates the change-password form. Passwords are not trimmed.
func (x *Validator) Password(p model.PasswordChange) (model.PasswordChange, error) {
	return p, x.Struct(p)
}

// Article validates the admin article form.
func (x *Validator) Article(a model.Article) (model.Article, error) {
	a.Name = strings.TrimSpace(a.Name)
	a.Description = strings.TrimSpace(a.Description)
	a.Currency = strings.TrimSpace(a.Currency)
	a.ImageURL = strings.TrimSpace(a.ImageURL)
	return a, x.Struct(a)
}

// Flashcard validates the admin flashcard form. An empty difficulty
// defaults to Beginner.
func (x *Validator) Flashcard(f model.Flashcard) (model.Flashcard, error) {
	f.EnglishWord = strings.TrimSpace(f.EnglishWord)
	f.Translation = strings.TrimSpace(f.Translation)
	f.Category = strings.TrimSpace(f.Category)
	f.Difficulty = strings.TrimSpace(f.Difficulty)
	f.Definition = strings.TrimSpace(f.Definition)
	f.Example = strings.TrimSpace(f.Example)
	f.ExampleSentence = strings.TrimSpace(f.ExampleSentence)
	f.Pronunciation = strings.TrimSpace(f.Pronunciation)
	if f.Difficulty == "" {
		f.Difficulty = "Beginner"
	}
	return f, x.Struct(f)
}

// Checkout validates the delivery and payment form. The card number is
// reduced to its digits and the state upper-cased before the rules run.
func (x *Validator) Checkout(c model.Checkout) (model.Checkout, error) {
	c.DeliveryName = strings.TrimSpace(c.DeliveryName)
	c.DeliveryStreet = strings.TrimSpace(c.DeliveryStreet)
	c.DeliveryCity = strings.TrimSpace(c.DeliveryCity)
	c.DeliveryState = strings.ToUpper(strings.TrimSpace(c.DeliveryState))
	c.DeliveryZip = strings.TrimSpace(c.DeliveryZip)
	c.CCNumber = digits(c.CCNumber)
	c.CCExpiration = strings.TrimSpace(c.CCExpiration)
	c.CCCvv = strings.TrimSpace(c.CCCvv)
	return c, x.Struct(c)
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatCardNumber groups digits in fours, as typed into the card field.
func FormatCardNumber(s string) string {
	d := digits(s)
	if len(d) > 16 {
		d = d[:16]
	}
	var parts []string
	for len(d) > 4 {
		parts = append(parts, d[:4])
		d = d[4:]
	}
	parts = append(parts, d)
	return strings.Join(parts, " ")
}

// FormatExpiry turns "1225" or "12/25" into "12/25".
func FormatExpiry(s string) string {
	d := digits(s)
	if len(d) > 4 {
		d = d[:4]
	}
	if len(d) >= 3 {
		return d[:2] + "/" + d[2:]
	}
	return d
}
