package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/flasheng/internal/errs"
	"github.com/and161185/flasheng/internal/listquery"
	"github.com/and161185/flasheng/internal/model"
	"github.com/and161185/flasheng/internal/notify"
	"github.com/and161185/flasheng/internal/transport"
	"github.com/and161185/flasheng/internal/validate"
)

var (
	_ ArticleService   = (*ArticleServiceImpl)(nil)
	_ FlashcardService = (*FlashcardServiceImpl)(nil)
	_ OrderService     = (*OrderServiceImpl)(nil)
	_ ProfileService   = (*ProfileServiceImpl)(nil)
	_ API              = (*transport.Client)(nil)
)

func newAPI(t *testing.T, h http.Handler) *transport.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := transport.New(transport.Options{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestArticleService_ListEncodesQuery(t *testing.T) {
	t.Parallel()
	var gotQuery string
	api := newAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/articles", r.URL.Path)
		gotQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, model.Page[model.Article]{
			Content: []model.Article{{ID: 1, Name: "Mug", Price: decimal.RequireFromString("9.99")}},
			Number:  1, TotalPages: 3, TotalElements: 25, Size: 12,
		})
	}))
	s := NewArticleService(api, validate.New(), nil)

	q := DefaultArticleQuery(0)
	q.Page = 1
	q.Search = "mug"
	q.Filters = listquery.PriceRange{MinPrice: "5"}
	page, err := s.List(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "minPrice=5&page=1&search=mug&size=12&sortBy=name&sortDir=asc", gotQuery)
	require.Len(t, page.Content, 1)
	assert.True(t, page.HasNext())
	assert.Equal(t, "9.99", page.Content[0].Price.StringFixed(2))
}

func TestArticleService_CreateValidatesFirst(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	api := newAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Name already used"})
	}))
	notes := &notify.Recorder{}
	s := NewArticleService(api, validate.New(), notes)

	_, err := s.Create(context.Background(), model.Article{Name: "Mug"})
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Zero(t, calls.Load())

	_, err = s.Create(context.Background(), model.Article{
		Name: "Mug", Description: "A mug", Price: decimal.NewFromInt(3), Currency: "USD", AvailableQuantity: 1,
	})
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []notify.Message{{Text: "Name already used"}}, notes.Messages())
}

func TestArticleService_DeleteFallbackMessage(t *testing.T) {
	t.Parallel()
	api := newAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/admin/articles/7", r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	notes := &notify.Recorder{}
	s := NewArticleService(api, validate.New(), notes)

	err := s.Delete(context.Background(), 7)
	require.ErrorIs(t, err, errs.ErrServer)
	assert.Equal(t, []notify.Message{{Text: "Failed to delete article"}}, notes.Messages())
}

func TestFlashcardService_CRUD(t *testing.T) {
	t.Parallel()
	var body map[string]any
	api := newAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/api/flashcards/3":
			_ = json.NewDecoder(r.Body).Decode(&body)
			writeJSON(w, http.StatusOK, map[string]any{"id": 3, "englishWord": "cat"})
		case r.Method == http.MethodGet && r.URL.Path == "/api/flashcards":
			assert.Equal(t, "Animals", r.URL.Query().Get("category"))
			assert.Equal(t, "0", r.URL.Query().Get("page"))
			writeJSON(w, http.StatusOK, map[string]any{"content": []any{}, "totalPages": 0})
		default:
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "forbidden"})
		}
	}))
	notes := &notify.Recorder{}
	s := NewFlashcardService(api, validate.New(), notes)

	got, err := s.Update(context.Background(), 3, model.Flashcard{EnglishWord: "cat", Translation: "кіт", Category: "Animals"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ID)
	assert.Equal(t, "Beginner", body["difficulty"])
	_, hasPrice := body["price"]
	assert.False(t, hasPrice, "zero price is omitted")

	q := DefaultFlashcardQuery(0)
	q.Filters.Category = "Animals"
	page, err := s.List(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, page.Content)

	err = s.Delete(context.Background(), 3)
	require.ErrorIs(t, err, errs.ErrForbidden)
	msgs := notes.Messages()
	assert.Equal(t, notify.Message{Text: "Access denied. Admin privileges required."}, msgs[len(msgs)-1])
}

type fakeCart struct {
	n     int
	reset int
}

func (c *fakeCart) Count() int  { return c.n }
func (c *fakeCart) ResetQueue() { c.reset++; c.n = 0 }

var _ Cart = (*fakeCart)(nil)

func checkout() model.Checkout {
	return model.Checkout{
		DeliveryName: "Jane", DeliveryStreet: "1 Main", DeliveryCity: "Town", DeliveryState: "ny",
		DeliveryZip: "10001", CCNumber: "4111 1111 1111 1111", CCExpiration: "12/99", CCCvv: "123",
	}
}

func TestOrderService_Place(t *testing.T) {
	t.Parallel()
	var sent map[string]any
	api := newAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&sent)
		writeJSON(w, http.StatusCreated, map[string]any{"orderId": 11, "status": "PENDING", "totalPrice": "20.00", "currency": "USD"})
	}))
	notes := &notify.Recorder{}
	s := NewOrderService(api, validate.New(), notes)

	_, err := s.Place(context.Background(), checkout(), &fakeCart{})
	require.ErrorIs(t, err, errs.ErrEmptyQueue)
	assert.Nil(t, sent)

	bad := checkout()
	bad.CCCvv = "1"
	_, err = s.Place(context.Background(), bad, &fakeCart{n: 1})
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Nil(t, sent)

	cart := &fakeCart{n: 2}
	order, err := s.Place(context.Background(), checkout(), cart)
	require.NoError(t, err)
	assert.Equal(t, int64(11), order.OrderID)
	assert.Equal(t, 1, cart.reset)
	assert.Equal(t, "4111111111111111", sent["ccNumber"])
	assert.Equal(t, "NY", sent["deliveryState"])
	msgs := notes.Messages()
	assert.Equal(t, notify.Message{OK: true, Text: "Order placed successfully!"}, msgs[len(msgs)-1])
}

func TestOrderService_PlaceRejectsDoubleSubmit(t *testing.T) {
	t.Parallel()
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	api := newAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		writeJSON(w, http.StatusCreated, map[string]any{"orderId": 12})
	}))
	s := NewOrderService(api, validate.New(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.Place(context.Background(), checkout(), &fakeCart{n: 1})
		done <- err
	}()
	<-entered
	_, err := s.Place(context.Background(), checkout(), &fakeCart{n: 1})
	require.ErrorIs(t, err, errs.ErrSubmitting)
	close(release)
	require.NoError(t, <-done)

	// settled, so the form can be sent again
	_, err = s.Place(context.Background(), checkout(), &fakeCart{n: 1})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOrderService_Lists(t *testing.T) {
	t.Parallel()
	queries := map[string]string{}
	api := newAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries[r.URL.Path] = r.URL.RawQuery
		if r.URL.Path == "/api/admin/orders/5" {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Order not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"content": []any{}})
	}))
	notes := &notify.Recorder{}
	s := NewOrderService(api, validate.New(), notes)
	ctx := context.Background()

	q := DefaultMyOrdersQuery(0)
	q.Filters = listquery.OrderFilters{CustomerName: "ignored", StartDate: "2026-01-01", OrderID: "4"}
	_, err := s.MyOrders(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "orderId=4&page=0&size=10&startDate=2026-01-01", queries["/api/orders/my"])

	aq := DefaultAdminOrdersQuery(0)
	aq.Filters.CustomerName = "Jane"
	_, err = s.AdminOrders(ctx, aq)
	require.NoError(t, err)
	assert.Equal(t, "customerName=Jane&page=0&size=10&sortBy=createdAt&sortDir=desc", queries["/api/admin/orders"])

	_, err = s.AdminOrder(ctx, 5)
	require.ErrorIs(t, err, errs.ErrNotFound)
	assert.Equal(t, []notify.Message{{Text: "Failed to load order details."}}, notes.Messages())
}

func TestSummarize(t *testing.T) {
	t.Parallel()
	st := Summarize([]model.Order{
		{TotalPrice: decimal.RequireFromString("10.10"), CustomerEmail: "a@x.com"},
		{TotalPrice: decimal.RequireFromString("0.20"), CustomerEmail: "A@x.com "},
		{TotalPrice: decimal.RequireFromString("5"), CustomerName: "Bob"},
		{TotalPrice: decimal.RequireFromString("0.1")},
	})
	assert.Equal(t, 4, st.TotalOrders)
	assert.Equal(t, "15.40", st.TotalRevenue.StringFixed(2))
	assert.Equal(t, 2, st.UniqueCustomers)

	empty := Summarize(nil)
	assert.True(t, empty.TotalRevenue.IsZero())
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestProfileService_UploadImage(t *testing.T) {
	t.Parallel()
	var uploads atomic.Int32
	api := newAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uploads.Add(1)
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "me.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		assert.Equal(t, pngHeader, b)
		writeJSON(w, http.StatusOK, map[string]string{"imageUrl": "/uploads/me.png"})
	}))
	notes := &notify.Recorder{}
	s := NewProfileService(api, validate.New(), notes)
	ctx := context.Background()

	_, err := s.UploadImage(ctx, "notes.txt", bytes.NewReader([]byte("hello")))
	require.ErrorIs(t, err, errs.ErrValidation)

	big := append(append([]byte{}, pngHeader...), make([]byte, MaxImageSize)...)
	_, err = s.UploadImage(ctx, "huge.png", bytes.NewReader(big))
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Zero(t, uploads.Load())

	out, err := s.UploadImage(ctx, "/tmp/me.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/me.png", out.ImageURL)
	assert.Equal(t, []notify.Message{
		{Text: "Please select a valid image file"},
		{Text: "File size must be less than 5MB"},
		{OK: true, Text: "Avatar updated successfully!"},
	}, notes.Messages())
}

func TestProfileService_ChangePassword(t *testing.T) {
	t.Parallel()
	var sent map[string]any
	api := newAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		_ = json.NewDecoder(r.Body).Decode(&sent)
		if sent["currentPassword"] != "secret1" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Current password is incorrect"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	notes := &notify.Recorder{}
	s := NewProfileService(api, validate.New(), notes)
	ctx := context.Background()

	require.NoError(t, s.ChangePassword(ctx, model.PasswordChange{CurrentPassword: "secret1", NewPassword: "secret2", ConfirmPassword: "secret2"}))
	assert.Equal(t, map[string]any{"currentPassword": "secret1", "newPassword": "secret2"}, sent)

	err := s.ChangePassword(ctx, model.PasswordChange{CurrentPassword: "nope12", NewPassword: "secret2", ConfirmPassword: "secret2"})
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, "Current password is incorrect", errs.Message(err, ""))
}
