// Package model defines the records exchanged with the FlashEng API.
package model

import (
	"github.com/shopspring/decimal"
)

// Session is the authenticated identity returned by login, signup and session check.
type Session struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// AuthResponse is the body of /auth/login, /auth/register and /auth/check.
// Some API builds report the role as "admin" instead of "isAdmin"; both are read.
type AuthResponse struct {
	Token   string `json:"token,omitempty"`
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin *bool  `json:"isAdmin,omitempty"`
	Admin   *bool  `json:"admin,omitempty"`
}

// Session extracts the identity part of the response.
func (r AuthResponse) Session() Session {
	admin := (r.IsAdmin != nil && *r.IsAdmin) || (r.Admin != nil && *r.Admin)
	return Session{ID: r.ID, Name: r.Name, Email: r.Email, IsAdmin: admin}
}

// Credentials is the login form payload.
type Credentials struct {
	Email    string `json:"email" validate:"required,max=255,email_loose"`
	Password string `json:"password" validate:"required,min=6"`
}

// SignupRequest is the registration form. ConfirmPassword never leaves the client.
type SignupRequest struct {
	Name            string `json:"name" validate:"required,min=2,max=100"`
	Email           string `json:"email" validate:"required,max=255,email_loose"`
	Phone           string `json:"phone,omitempty" validate:"omitempty,phone"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"-" validate:"required,eqfield=Password"`
}

// ProfilePatch is sent to PUT /users/{id} by the session store.
type ProfilePatch struct {
	FullName string `json:"fullName" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,max=255,email_loose"`
}

// Page is the paginated envelope used by every list endpoint.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Number        int   `json:"number"`
	TotalPages    int   `json:"totalPages"`
	TotalElements int64 `json:"totalElements"`
	Size          int   `json:"size"`
}

// HasNext reports whether a page after Number exists.
func (p Page[T]) HasNext() bool { return p.Number+1 < p.TotalPages }

// HasPrev reports whether a page before Number exists.
func (p Page[T]) HasPrev() bool { return p.Number > 0 }

// Article is a catalog entry.
type Article struct {
	ID                int64           `json:"id,omitempty"`
	Name              string          `json:"name" validate:"required,max=50"`
	Description       string          `json:"description" validate:"required,max=255"`
	Price             decimal.Decimal `json:"price" validate:"gt=0,lte=999999.99"`
	Currency          string          `json:"currency" validate:"required,currency"`
	AvailableQuantity int             `json:"availableQuantity" validate:"min=0,max=999999"`
	ImageURL          string          `json:"imageUrl,omitempty" validate:"omitempty,max=255,image_url"`
	CreatedAt         string          `json:"createdAt,omitempty"`
}

// Flashcard is a vocabulary card.
type Flashcard struct {
	ID              int64           `json:"id,omitempty"`
	EnglishWord     string          `json:"englishWord" validate:"required,max=100"`
	Translation     string          `json:"translation" validate:"required,max=100"`
	Category        string          `json:"category" validate:"required,category"`
	Difficulty      string          `json:"difficulty" validate:"required,difficulty"`
	Definition      string          `json:"definition,omitempty" validate:"max=500"`
	Example         string          `json:"example,omitempty" validate:"max=500"`
	ExampleSentence string          `json:"exampleSentence,omitempty"`
	Pronunciation   string          `json:"pronunciation,omitempty"`
	Price           decimal.Decimal `json:"price,omitzero"`
	CreatedAt       string          `json:"createdAt,omitempty"`
}
