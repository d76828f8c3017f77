package model

import "github.com/shopspring/decimal"

// QueueItem is one line of the cart or practice queue. The cart variant
// fills ArticleID/Quantity, the practice variant FlashcardID/PracticeCount.
type QueueItem struct {
	ID                 int64           `json:"id"`
	ArticleID          int64           `json:"articleId,omitempty"`
	FlashcardID        int64           `json:"flashcardId,omitempty"`
	ArticleName        string          `json:"articleName,omitempty"`
	ArticleDescription string          `json:"articleDescription,omitempty"`
	ArticleImageURL    string          `json:"articleImageUrl,omitempty"`
	UnitPrice          decimal.Decimal `json:"articlePrice"`
	Quantity           int             `json:"quantity,omitempty"`
	PracticeCount      int             `json:"practiceCount,omitempty"`
	AvailableQuantity  int             `json:"availableQuantity"`
	LineTotal          decimal.Decimal `json:"totalPrice"`
	Currency           string          `json:"currency,omitempty"`
}

// Ref returns the product reference of the line.
func (i QueueItem) Ref() int64 {
	if i.FlashcardID != 0 {
		return i.FlashcardID
	}
	return i.ArticleID
}

// Count returns the line quantity regardless of variant.
func (i QueueItem) Count() int {
	if i.PracticeCount != 0 {
		return i.PracticeCount
	}
	return i.Quantity
}

// Queue is the cart/practice-queue resource as returned by the server.
type Queue struct {
	Items      []QueueItem     `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	TotalItems int             `json:"totalItems"`
	Currency   string          `json:"currency"`
}

// Empty reports whether the queue has no lines.
func (q Queue) Empty() bool { return len(q.Items) == 0 }

// Line finds a line by id.
func (q Queue) Line(id int64) (QueueItem, bool) {
	for _, it := range q.Items {
		if it.ID == id {
			return it, true
		}
	}
	return QueueItem{}, false
}

// PracticeConfig controls a practice session started from the queue.
type PracticeConfig struct {
	Mode            string `json:"mode"`
	ShuffleCards    bool   `json:"shuffleCards"`
	RepeatIncorrect bool   `json:"repeatIncorrect"`
}

// PracticeSessionRequest is the body of POST /practice-sessions.
type PracticeSessionRequest struct {
	FlashcardIDs   []int64        `json:"flashcardIds"`
	PracticeConfig PracticeConfig `json:"practiceConfig"`
}

// PracticeSession is the created session.
type PracticeSession struct {
	ID         int64   `json:"id"`
	Flashcards []int64 `json:"flashcardIds"`
	Mode       string  `json:"mode"`
}
