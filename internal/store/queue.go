package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/and161185/flasheng/internal/errs"
	"github.com/and161185/flasheng/internal/model"
	"github.com/and161185/flasheng/internal/notify"
)

// Variant describes the wire contract of a queue resource.
type Variant struct {
	Name       string
	Resource   string
	RefField   string
	CountField string
	Currency   string
	Noun       string
}

var (
	// CartVariant is the storefront cart at /cart.
	CartVariant = Variant{
		Name: "cart", Resource: "/cart", RefField: "articleId", CountField: "quantity",
		Currency: "USD", Noun: "cart",
	}
	// PracticeVariant is the flashcard practice queue at /practice-queue.
	PracticeVariant = Variant{
		Name: "practice", Resource: "/practice-queue", RefField: "flashcardId", CountField: "practiceCount",
		Currency: "PTS", Noun: "practice queue",
	}
)

// ErrNotPracticeQueue is returned when a practice session is started from the cart.
var ErrNotPracticeQueue = errors.New("practice sessions need the practice queue")

// VariantByName resolves the configured variant, defaulting to the cart.
func VariantByName(name string) Variant {
	if name == PracticeVariant.Name {
		return PracticeVariant
	}
	return CartVariant
}

// MaxPracticeCount bounds how many repetitions a flashcard may be queued for.
const MaxPracticeCount = 99

// Item is what can be queued: a product reference and its stock ceiling.
type Item struct {
	Ref       int64
	Available int
}

// ArticleItem queues an article against its available stock.
func ArticleItem(a model.Article) Item { return Item{Ref: a.ID, Available: a.AvailableQuantity} }

// FlashcardItem queues a flashcard for practice.
func FlashcardItem(f model.Flashcard) Item { return Item{Ref: f.ID, Available: MaxPracticeCount} }

// QueueState is what queue subscribers observe.
type QueueState struct {
	Queue   model.Queue
	Loading bool
}

// Queue is a read-through cache of the server-side cart or practice queue.
// Every successful mutation is followed by a full resync; the local copy is
// never patched.
type Queue struct {
	api    API
	v      Variant
	notify notify.Notifier
	log    *zap.Logger

	mu      sync.RWMutex
	state   model.Queue
	loading int
	applied uint64

	seq   atomic.Uint64
	lines keyedMutex
	subs  subscribers[QueueState]
}

// NewQueue creates an empty queue store for variant v.
func NewQueue(api API, v Variant, n notify.Notifier, log *zap.Logger) *Queue {
	if n == nil {
		n = notify.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{
		api:    api,
		v:      v,
		notify: n,
		log:    log.Named("queue").With(zap.String("variant", v.Name)),
		state:  emptyQueue(v),
	}
}

func emptyQueue(v Variant) model.Queue {
	return model.Queue{Items: []model.QueueItem{}, TotalPrice: decimal.Zero, Currency: v.Currency}
}

// Variant returns the wire contract in use.
func (q *Queue) Variant() Variant { return q.v }

// Snapshot returns a copy of the current queue.
func (q *Queue) Snapshot() model.Queue {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := q.state
	out.Items = append([]model.QueueItem(nil), q.state.Items...)
	return out
}

// Count is the number of queued lines.
func (q *Queue) Count() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.state.Items)
}

// Loading reports whether a fetch is in flight.
func (q *Queue) Loading() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.loading > 0
}

// Subscribe registers fn for every state change.
func (q *Queue) Subscribe(fn func(QueueState)) (unsubscribe func()) { return q.subs.add(fn) }

func (q *Queue) publish() {
	q.mu.RLock()
	st := QueueState{Queue: q.state, Loading: q.loading > 0}
	st.Queue.Items = append([]model.QueueItem(nil), q.state.Items...)
	q.mu.RUnlock()
	q.subs.emit(st)
}

// FetchQueue replaces the local queue with the server's. On failure the
// local queue is emptied, the user is notified and the error returned.
func (q *Queue) FetchQueue(ctx context.Context) error {
	err := q.resync(ctx)
	if err != nil {
		q.notify.Error("Failed to load " + q.v.Noun)
	}
	return err
}

// resync fetches the resource and applies it unless a newer fetch already
// landed. Failures empty the local queue.
func (q *Queue) resync(ctx context.Context) error {
	seq := q.seq.Add(1)
	q.mu.Lock()
	q.loading++
	q.mu.Unlock()
	q.publish()

	var res model.Queue
	err := q.api.JSON(ctx, http.MethodGet, q.v.Resource, nil, nil, &res)

	q.mu.Lock()
	q.loading--
	stale := seq < q.applied
	if !stale {
		q.applied = seq
		if err != nil {
			q.state = emptyQueue(q.v)
		} else {
			if res.Items == nil {
				res.Items = []model.QueueItem{}
			}
			if res.Currency == "" {
				res.Currency = q.v.Currency
			}
			q.state = res
		}
	}
	q.mu.Unlock()
	q.publish()

	if stale {
		q.log.Debug("stale queue fetch discarded", zap.Uint64("seq", seq))
	}
	if err != nil {
		q.log.Warn("fetch queue failed", zap.Error(err))
		return fmt.Errorf("fetch %s: %w", q.v.Noun, err)
	}
	return nil
}

// afterMutation resyncs and wraps a resync failure in errs.ErrResync.
func (q *Queue) afterMutation(ctx context.Context, op string) error {
	if err := q.resync(ctx); err != nil {
		q.notify.Error("Failed to load " + q.v.Noun)
		return fmt.Errorf("%s: %w: %w", op, errs.ErrResync, err)
	}
	return nil
}

func (q *Queue) fail(op string, err error, fallback string) error {
	q.notify.Error(errs.Message(err, fallback))
	return fmt.Errorf("%s: %w", op, err)
}

// AddToQueue adds count of item. The count is checked against the item's
// stock before any request is made.
func (q *Queue) AddToQueue(ctx context.Context, item Item, count int) error {
	if count <= 0 || count > item.Available {
		return errs.FieldErrors{q.v.CountField: fmt.Sprintf("Must be between 1 and %d", item.Available)}
	}
	unlock := q.lines.Lock("ref:" + strconv.FormatInt(item.Ref, 10))
	defer unlock()

	body := map[string]any{q.v.RefField: item.Ref, q.v.CountField: count}
	if err := q.api.JSON(ctx, http.MethodPost, q.v.Resource, nil, body, nil); err != nil {
		return q.fail("add to "+q.v.Noun, err, "Failed to add to "+q.v.Noun)
	}
	if err := q.afterMutation(ctx, "add to "+q.v.Noun); err != nil {
		return err
	}
	if q.v.Name == PracticeVariant.Name {
		q.notify.Success(fmt.Sprintf("Added to practice queue (%dx)", count))
	} else {
		q.notify.Success("Added to cart")
	}
	return nil
}

// UpdateItem sets the count of line id. newCount must be at least 1.
func (q *Queue) UpdateItem(ctx context.Context, id int64, newCount int) error {
	if newCount < 1 {
		return errs.FieldErrors{q.v.CountField: "Must be at least 1"}
	}
	unlock := q.lines.Lock(lineKey(id))
	defer unlock()

	body := map[string]any{q.v.CountField: newCount}
	if err := q.api.JSON(ctx, http.MethodPut, q.linePath(id), nil, body, nil); err != nil {
		return q.fail("update "+q.v.Noun, err, "Failed to update "+q.v.Noun)
	}
	if err := q.afterMutation(ctx, "update "+q.v.Noun); err != nil {
		return err
	}
	q.notify.Success(titleNoun(q.v) + " updated")
	return nil
}

// RemoveItem deletes line id.
func (q *Queue) RemoveItem(ctx context.Context, id int64) error {
	unlock := q.lines.Lock(lineKey(id))
	defer unlock()

	if err := q.api.JSON(ctx, http.MethodDelete, q.linePath(id), nil, nil, nil); err != nil {
		return q.fail("remove from "+q.v.Noun, err, "Failed to remove item")
	}
	if err := q.afterMutation(ctx, "remove from "+q.v.Noun); err != nil {
		return err
	}
	q.notify.Success("Item removed")
	return nil
}

// ClearQueue empties the resource. The server is empty afterwards, so the
// local queue is emptied without a refetch.
func (q *Queue) ClearQueue(ctx context.Context) error {
	if err := q.api.JSON(ctx, http.MethodDelete, q.v.Resource+"/clear", nil, nil, nil); err != nil {
		return q.fail("clear "+q.v.Noun, err, "Failed to clear "+q.v.Noun)
	}
	q.setEmpty()
	q.notify.Success(titleNoun(q.v) + " cleared")
	return nil
}

// ResetQueue forgets the local queue without any request. It runs when a
// session ends so the next user never sees the previous cart.
func (q *Queue) ResetQueue() {
	q.setEmpty()
}

func (q *Queue) setEmpty() {
	seq := q.seq.Add(1)
	q.mu.Lock()
	q.applied = seq
	q.state = emptyQueue(q.v)
	q.mu.Unlock()
	q.publish()
}

// StartPracticeSession starts a session over every queued flashcard and
// clears the queue.
func (q *Queue) StartPracticeSession(ctx context.Context, cfg model.PracticeConfig) (model.PracticeSession, error) {
	if q.v.Name != PracticeVariant.Name {
		return model.PracticeSession{}, ErrNotPracticeQueue
	}
	snap := q.Snapshot()
	if snap.Empty() {
		q.notify.Error("No flashcards in practice queue")
		return model.PracticeSession{}, errs.ErrEmptyQueue
	}
	if cfg.Mode == "" {
		cfg.Mode = "mixed"
	}
	req := model.PracticeSessionRequest{PracticeConfig: cfg}
	for _, it := range snap.Items {
		req.FlashcardIDs = append(req.FlashcardIDs, it.Ref())
	}

	var out model.PracticeSession
	if err := q.api.JSON(ctx, http.MethodPost, "/practice-sessions", nil, req, &out); err != nil {
		q.notify.Error("Failed to start practice session")
		return model.PracticeSession{}, fmt.Errorf("start practice session: %w", err)
	}
	if err := q.ClearQueue(ctx); err != nil {
		return out, err
	}
	q.notify.Success("Practice session started!")
	return out, nil
}

func (q *Queue) linePath(id int64) string {
	return q.v.Resource + "/" + strconv.FormatInt(id, 10)
}

func lineKey(id int64) string { return "line:" + strconv.FormatInt(id, 10) }

func titleNoun(v Variant) string {
	if v.Noun == "" {
		return ""
	}
	return strings.ToUpper(v.Noun[:1]) + v.Noun[1:]
}

// IsResync reports whether err is a mutation that succeeded but whose
// refresh failed.
func IsResync(err error) bool { return errors.Is(err, errs.ErrResync) }
