package devserver

import (
	"net/http"

	"github.com/and161185/flasheng/internal/model"
)

// queueBody accepts both the cart and the practice-queue field names.
type queueBody struct {
	ArticleID     int64 `json:"articleId"`
	FlashcardID   int64 `json:"flashcardId"`
	Quantity      int   `json:"quantity"`
	PracticeCount int   `json:"practiceCount"`
}

func (b queueBody) ref(k queueKind) int64 {
	if k == practiceKind {
		return b.FlashcardID
	}
	return b.ArticleID
}

func (b queueBody) count(k queueKind) int {
	if k == practiceKind {
		return b.PracticeCount
	}
	return b.Quantity
}

func caller(r *http.Request) int64 {
	p, _ := principalFrom(r.Context())
	return p.UserID
}

func (s *Server) getQueue(k queueKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.db.queue(k, caller(r)))
	}
}

func (s *Server) addToQueue(k queueKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var b queueBody
		if err := decodeJSON(r, &b); err != nil {
			s.fail(w, r, err)
			return
		}
		uid := caller(r)
		if err := s.db.addLine(k, uid, b.ref(k), b.count(k)); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, s.db.queue(k, uid))
	}
}

func (s *Server) updateLine(k queueKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var b queueBody
		if err := decodeJSON(r, &b); err != nil {
			s.fail(w, r, err)
			return
		}
		uid := caller(r)
		if err := s.db.setLine(k, uid, pathID(r), b.count(k)); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.db.queue(k, uid))
	}
}

func (s *Server) removeLine(k queueKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.removeLine(k, caller(r), pathID(r)); err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) clearQueue(k queueKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.db.clearQueue(k, caller(r))
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) startPractice(w http.ResponseWriter, r *http.Request) {
	var req model.PracticeSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if len(req.FlashcardIDs) == 0 {
		s.fail(w, r, failf(http.StatusUnprocessableEntity, "No flashcards selected"))
		return
	}
	id, err := s.db.practiceSession(req.FlashcardIDs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	mode := req.PracticeConfig.Mode
	if mode == "" {
		mode = "mixed"
	}
	writeJSON(w, http.StatusCreated, model.PracticeSession{ID: id, Flashcards: req.FlashcardIDs, Mode: mode})
}
