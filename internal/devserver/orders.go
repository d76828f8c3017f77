package devserver

import (
	"cmp"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/flasheng/internal/model"
)

var orderOrder = map[string]func(a, b orderRec) int{
	"createdAt":  func(a, b orderRec) int { return a.At.Compare(b.At) },
	"totalPrice": func(a, b orderRec) int { return a.Order.TotalPrice.Cmp(b.Order.TotalPrice) },
	"status":     func(a, b orderRec) int { return cmp.Compare(a.Order.Status, b.Order.Status) },
}

const dateLayout = "2006-01-02"

func (s *Server) placeOrder(w http.ResponseWriter, r *http.Request) {
	var c model.Checkout
	if err := decodeJSON(r, &c); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.v.Checkout(c)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := uuid.NewV4()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	number := "ORD-" + strings.ToUpper(id.String()[:8])
	o, err := s.db.placeOrder(caller(r), c, s.now(), number)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) myOrders(w http.ResponseWriter, r *http.Request) {
	s.listOrders(w, r, caller(r))
}

func (s *Server) adminOrders(w http.ResponseWriter, r *http.Request) {
	s.listOrders(w, r, 0)
}

// listOrders filters by customerName, orderId and an inclusive
// startDate..endDate range (YYYY-MM-DD, server time zone).
func (s *Server) listOrders(w http.ResponseWriter, r *http.Request, uid int64) {
	p := parseList(r, 10)
	name := strings.ToLower(strings.TrimSpace(p.Query.Get("customerName")))
	orderID, _ := strconv.ParseInt(p.Query.Get("orderId"), 10, 64)
	from, hasFrom := parseDate(p.Query.Get("startDate"))
	to, hasTo := parseDate(p.Query.Get("endDate"))

	all := s.db.orderList(uid)
	out := all[:0]
	for _, rec := range all {
		switch {
		case name != "" && !contains(rec.Order.CustomerName, name):
		case orderID != 0 && rec.Order.OrderID != orderID:
		case hasFrom && rec.At.Before(from):
		case hasTo && !rec.At.Before(to.AddDate(0, 0, 1)):
		default:
			out = append(out, rec)
		}
	}
	dir := p.SortDir
	if p.SortBy == "" && dir == "" {
		dir = "desc"
	}
	sortBy(out, orderOrder, p.SortBy, "createdAt", dir)

	recs := paginate(out, p)
	page := model.Page[model.Order]{
		Content:       make([]model.Order, len(recs.Content)),
		Number:        recs.Number,
		TotalPages:    recs.TotalPages,
		TotalElements: recs.TotalElements,
		Size:          recs.Size,
	}
	for i, rec := range recs.Content {
		page.Content[i] = rec.Order
	}
	writeJSON(w, http.StatusOK, page)
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	return t, err == nil
}

func (s *Server) adminOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := s.db.order(pathID(r))
	if !ok {
		s.fail(w, r, notFound("Order"))
		return
	}
	writeJSON(w, http.StatusOK, o)
}
