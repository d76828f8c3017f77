package devserver

import (
	"cmp"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/and161185/flasheng/internal/model"
)

type account struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	PwdHash   string
	IsAdmin   bool
	ImageURL  string
	CreatedAt time.Time
}

func (a *account) auth(token string) model.AuthResponse {
	admin := a.IsAdmin
	return model.AuthResponse{Token: token, ID: a.ID, Name: a.Name, Email: a.Email, IsAdmin: &admin}
}

func (a *account) profile() model.Profile {
	return model.Profile{
		ID: a.ID, Name: a.Name, Email: a.Email, Phone: a.Phone,
		ImageURL: a.ImageURL, CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type queueKind int

const (
	cartKind queueKind = iota
	practiceKind
)

// maxPracticeCount is the availability reported for every flashcard.
const maxPracticeCount = 99

type line struct {
	ID    int64
	Ref   int64
	Count int
}

type orderRec struct {
	UserID int64
	At     time.Time
	Order  model.Order
}

type image struct {
	contentType string
	data        []byte
}

// memDB holds every resource. All access goes through its methods.
type memDB struct {
	mu         sync.Mutex
	seq        int64
	accounts   map[int64]*account
	byEmail    map[string]int64
	articles   map[int64]*model.Article
	flashcards map[int64]*model.Flashcard
	queues     [2]map[int64][]*line
	orders     []*orderRec
	revoked    map[string]time.Time
	images     map[string]image
}

func newMemDB() *memDB {
	return &memDB{
		accounts:   make(map[int64]*account),
		byEmail:    make(map[string]int64),
		articles:   make(map[int64]*model.Article),
		flashcards: make(map[int64]*model.Flashcard),
		queues:     [2]map[int64][]*line{make(map[int64][]*line), make(map[int64][]*line)},
		revoked:    make(map[string]time.Time),
		images:     make(map[string]image),
	}
}

func (db *memDB) nextID() int64 {
	db.seq++
	return db.seq
}

// --- accounts ---

func (db *memDB) createAccount(a account) (account, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	key := strings.ToLower(a.Email)
	if _, ok := db.byEmail[key]; ok {
		return account{}, failf(http.StatusConflict, "Email already registered")
	}
	a.ID = db.nextID()
	db.accounts[a.ID] = &a
	db.byEmail[key] = a.ID
	return a, nil
}

func (db *memDB) accountByEmail(email string) (account, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	id, ok := db.byEmail[strings.ToLower(email)]
	if !ok {
		return account{}, false
	}
	return *db.accounts[id], true
}

func (db *memDB) account(id int64) (account, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.accounts[id]
	if !ok {
		return account{}, false
	}
	return *a, true
}

func (db *memDB) isAdmin(id int64) bool {
	a, ok := db.account(id)
	return ok && a.IsAdmin
}

// updateAccount applies fn to the stored account. An email change is
// rejected when another account owns the address.
func (db *memDB) updateAccount(id int64, email string, fn func(*account)) (account, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.accounts[id]
	if !ok {
		return account{}, notFound("User")
	}
	if email != "" && !strings.EqualFold(email, a.Email) {
		key := strings.ToLower(email)
		if owner, taken := db.byEmail[key]; taken && owner != id {
			return account{}, failf(http.StatusConflict, "Email already in use")
		}
		delete(db.byEmail, strings.ToLower(a.Email))
		db.byEmail[key] = id
	}
	fn(a)
	return *a, nil
}

// --- sessions ---

func (db *memDB) revoke(p principal) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.revoked[p.TokenID] = p.Expires
}

func (db *memDB) validSession(p principal) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, gone := db.revoked[p.TokenID]; gone {
		return false
	}
	_, ok := db.accounts[p.UserID]
	return ok
}

// --- catalog ---

func (db *memDB) articleList() []model.Article {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]model.Article, 0, len(db.articles))
	for _, a := range db.articles {
		out = append(out, *a)
	}
	slices.SortFunc(out, func(a, b model.Article) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (db *memDB) putArticle(a model.Article) model.Article {
	db.mu.Lock()
	defer db.mu.Unlock()
	if a.ID == 0 {
		a.ID = db.nextID()
	}
	db.articles[a.ID] = &a
	return a
}

func (db *memDB) updateArticle(id int64, a model.Article) (model.Article, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	cur, ok := db.articles[id]
	if !ok {
		return model.Article{}, notFound("Article")
	}
	a.ID, a.CreatedAt = id, cur.CreatedAt
	*cur = a
	return a, nil
}

func (db *memDB) deleteArticle(id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.articles[id]; !ok {
		return notFound("Article")
	}
	delete(db.articles, id)
	db.dropRefLocked(cartKind, id)
	return nil
}

func (db *memDB) flashcardList() []model.Flashcard {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]model.Flashcard, 0, len(db.flashcards))
	for _, f := range db.flashcards {
		out = append(out, *f)
	}
	slices.SortFunc(out, func(a, b model.Flashcard) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (db *memDB) putFlashcard(f model.Flashcard) model.Flashcard {
	db.mu.Lock()
	defer db.mu.Unlock()
	if f.ID == 0 {
		f.ID = db.nextID()
	}
	db.flashcards[f.ID] = &f
	return f
}

func (db *memDB) updateFlashcard(id int64, f model.Flashcard) (model.Flashcard, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	cur, ok := db.flashcards[id]
	if !ok {
		return model.Flashcard{}, notFound("Flashcard")
	}
	f.ID, f.CreatedAt = id, cur.CreatedAt
	*cur = f
	return f, nil
}

func (db *memDB) deleteFlashcard(id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.flashcards[id]; !ok {
		return notFound("Flashcard")
	}
	delete(db.flashcards, id)
	db.dropRefLocked(practiceKind, id)
	return nil
}

// --- cart and practice queue ---

func (db *memDB) dropRefLocked(k queueKind, ref int64) {
	for uid, lines := range db.queues[k] {
		db.queues[k][uid] = slices.DeleteFunc(lines, func(l *line) bool { return l.Ref == ref })
	}
}

func (db *memDB) availableLocked(k queueKind, ref int64) (int, bool) {
	if k == practiceKind {
		_, ok := db.flashcards[ref]
		return maxPracticeCount, ok
	}
	a, ok := db.articles[ref]
	if !ok {
		return 0, false
	}
	return a.AvailableQuantity, true
}

func refName(k queueKind) string {
	if k == practiceKind {
		return "Flashcard"
	}
	return "Article"
}

func exceeds(avail int) error {
	return failf(http.StatusUnprocessableEntity, "Requested quantity exceeds available stock (%d)", avail)
}

// addLine adds count of ref, merging into an existing line for the same ref.
func (db *memDB) addLine(k queueKind, uid, ref int64, count int) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if count < 1 {
		return failf(http.StatusUnprocessableEntity, "Quantity must be at least 1")
	}
	avail, ok := db.availableLocked(k, ref)
	if !ok {
		return notFound(refName(k))
	}
	for _, l := range db.queues[k][uid] {
		if l.Ref == ref {
			if l.Count+count > avail {
				return exceeds(avail)
			}
			l.Count += count
			return nil
		}
	}
	if count > avail {
		return exceeds(avail)
	}
	db.queues[k][uid] = append(db.queues[k][uid], &line{ID: db.nextID(), Ref: ref, Count: count})
	return nil
}

func (db *memDB) setLine(k queueKind, uid, id int64, count int) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if count < 1 {
		return failf(http.StatusUnprocessableEntity, "Quantity must be at least 1")
	}
	for _, l := range db.queues[k][uid] {
		if l.ID != id {
			continue
		}
		avail, _ := db.availableLocked(k, l.Ref)
		if count > avail {
			return exceeds(avail)
		}
		l.Count = count
		return nil
	}
	return notFound("Item")
}

func (db *memDB) removeLine(k queueKind, uid, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	lines := db.queues[k][uid]
	i := slices.IndexFunc(lines, func(l *line) bool { return l.ID == id })
	if i < 0 {
		return notFound("Item")
	}
	db.queues[k][uid] = slices.Delete(lines, i, i+1)
	return nil
}

func (db *memDB) clearQueue(k queueKind, uid int64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.queues[k], uid)
}

// queue renders the resource with totals computed in decimal.
func (db *memDB) queue(k queueKind, uid int64) model.Queue {
	db.mu.Lock()
	defer db.mu.Unlock()
	q := model.Queue{Items: []model.QueueItem{}, TotalPrice: decimal.Zero, Currency: "USD"}
	if k == practiceKind {
		q.Currency = "PTS"
	}
	for i, l := range db.queues[k][uid] {
		it := model.QueueItem{ID: l.ID}
		if k == practiceKind {
			f := db.flashcards[l.Ref]
			it.FlashcardID, it.PracticeCount = l.Ref, l.Count
			it.ArticleName, it.ArticleDescription = f.EnglishWord, f.Translation
			it.UnitPrice, it.AvailableQuantity, it.Currency = f.Price, maxPracticeCount, "PTS"
		} else {
			a := db.articles[l.Ref]
			it.ArticleID, it.Quantity = l.Ref, l.Count
			it.ArticleName, it.ArticleDescription, it.ArticleImageURL = a.Name, a.Description, a.ImageURL
			it.UnitPrice, it.AvailableQuantity, it.Currency = a.Price, a.AvailableQuantity, a.Currency
			if i == 0 {
				q.Currency = a.Currency
			}
		}
		it.LineTotal = it.UnitPrice.Mul(decimal.NewFromInt(int64(l.Count)))
		q.Items = append(q.Items, it)
		q.TotalPrice = q.TotalPrice.Add(it.LineTotal)
		q.TotalItems += l.Count
	}
	return q
}

// --- orders ---

// placeOrder turns the cart into an order, decrementing stock and emptying
// the cart. Nothing changes when any line is short of stock.
func (db *memDB) placeOrder(uid int64, c model.Checkout, now time.Time, number string) (model.Order, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	lines := db.queues[cartKind][uid]
	if len(lines) == 0 {
		return model.Order{}, failf(http.StatusUnprocessableEntity, "Cart is empty")
	}
	for _, l := range lines {
		if a := db.articles[l.Ref]; a.AvailableQuantity < l.Count {
			return model.Order{}, failf(http.StatusUnprocessableEntity, "Insufficient stock for %s", a.Name)
		}
	}
	acct := db.accounts[uid]
	o := model.Order{
		OrderID:       db.nextID(),
		OrderNumber:   number,
		OrderDate:     now.UTC().Format(time.RFC3339),
		Status:        "PENDING",
		CustomerName:  acct.Name,
		CustomerEmail: acct.Email,
		TotalPrice:    decimal.Zero,
		Currency:      "USD",
		DeliveryInfo: &model.DeliveryInfo{
			DeliveryName:   c.DeliveryName,
			DeliveryStreet: c.DeliveryStreet,
			DeliveryCity:   c.DeliveryCity,
			DeliveryState:  c.DeliveryState,
			DeliveryZip:    c.DeliveryZip,
		},
	}
	for _, l := range lines {
		a := db.articles[l.Ref]
		a.AvailableQuantity -= l.Count
		total := a.Price.Mul(decimal.NewFromInt(int64(l.Count)))
		o.Items = append(o.Items, model.OrderItem{
			ArticleID:          a.ID,
			ArticleName:        a.Name,
			ArticleDescription: a.Description,
			ImageURL:           a.ImageURL,
			Price:              a.Price,
			Quantity:           l.Count,
			TotalPrice:         total,
			Currency:           a.Currency,
		})
		o.TotalPrice = o.TotalPrice.Add(total)
		o.TotalItems += l.Count
		o.Currency = a.Currency
	}
	delete(db.queues[cartKind], uid)
	db.orders = append(db.orders, &orderRec{UserID: uid, At: now, Order: o})
	return o, nil
}

// orderList returns orders newest first; uid 0 means every user.
func (db *memDB) orderList(uid int64) []orderRec {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]orderRec, 0, len(db.orders))
	for i := len(db.orders) - 1; i >= 0; i-- {
		if rec := db.orders[i]; uid == 0 || rec.UserID == uid {
			out = append(out, *rec)
		}
	}
	return out
}

func (db *memDB) order(id int64) (model.Order, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, rec := range db.orders {
		if rec.Order.OrderID == id {
			return rec.Order, true
		}
	}
	return model.Order{}, false
}

// --- uploads ---

func (db *memDB) putImage(name string, img image) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.images[name] = img
}

func (db *memDB) image(name string) (image, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	img, ok := db.images[name]
	return img, ok
}

// practiceSession checks that every flashcard exists and allocates a session id.
func (db *memDB) practiceSession(ids []int64) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, id := range ids {
		if _, ok := db.flashcards[id]; !ok {
			return 0, notFound("Flashcard")
		}
	}
	return db.nextID(), nil
}
