package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/and161185/flasheng/internal/errs"
	"github.com/and161185/flasheng/internal/listquery"
	"github.com/and161185/flasheng/internal/model"
	"github.com/and161185/flasheng/internal/notify"
	"github.com/and161185/flasheng/internal/validate"
)

// OrderQuery is the state of both order lists.
type OrderQuery = listquery.State[listquery.OrderFilters]

// Cart is the part of the queue store checkout needs.
type Cart interface {
	Count() int
	ResetQueue()
}

// OrderService places orders and lists them.
type OrderService interface {
	// Place validates the checkout form and submits the cart as an order.
	Place(ctx context.Context, c model.Checkout, cart Cart) (model.Order, error)
	// MyOrders lists the current user's orders.
	MyOrders(ctx context.Context, q OrderQuery) (model.Page[model.Order], error)
	// AdminOrders lists every customer's orders.
	AdminOrders(ctx context.Context, q OrderQuery) (model.Page[model.Order], error)
	// AdminOrder returns one order with its lines and delivery info.
	AdminOrder(ctx context.Context, id int64) (model.Order, error)
}

type OrderServiceImpl struct {
	api      API
	v        *validate.Validator
	notify   notify.Notifier
	checkout validate.Submission
}

// NewOrderService constructs OrderService.
func NewOrderService(api API, v *validate.Validator, n notify.Notifier) *OrderServiceImpl {
	return &OrderServiceImpl{api: api, v: v, notify: orNop(n)}
}

// DefaultMyOrdersQuery is the order history's initial state.
func DefaultMyOrdersQuery(size int) OrderQuery {
	if size <= 0 {
		size = 10
	}
	return OrderQuery{PageSize: size}
}

// DefaultAdminOrdersQuery is the admin order table's initial state.
func DefaultAdminOrdersQuery(size int) OrderQuery {
	if size <= 0 {
		size = 10
	}
	return OrderQuery{SortBy: "createdAt", SortDir: "desc", PageSize: size}
}

func (s *OrderServiceImpl) Place(ctx context.Context, c model.Checkout, cart Cart) (model.Order, error) {
	c, err := s.v.Checkout(c)
	if err != nil {
		s.notify.Error("Please fix the errors in the form")
		return model.Order{}, err
	}
	if cart != nil && cart.Count() == 0 {
		s.notify.Error("Your cart is empty")
		return model.Order{}, errs.ErrEmptyQueue
	}
	if err := s.checkout.Begin(); err != nil {
		return model.Order{}, err
	}
	defer s.checkout.End()
	var out model.Order
	if err := s.api.JSON(ctx, http.MethodPost, "/orders", nil, c, &out); err != nil {
		s.notify.Error(errs.Message(err, "Failed to place order"))
		return model.Order{}, fmt.Errorf("place order: %w", err)
	}
	if cart != nil {
		cart.ResetQueue()
	}
	s.notify.Success("Order placed successfully!")
	return out, nil
}

func (s *OrderServiceImpl) MyOrders(ctx context.Context, q OrderQuery) (model.Page[model.Order], error) {
	q.Filters.CustomerName = ""
	var page model.Page[model.Order]
	if err := s.api.JSON(ctx, http.MethodGet, "/orders/my", queryOf(q), nil, &page); err != nil {
		return page, fmt.Errorf("my orders: %w", err)
	}
	return page, nil
}

func (s *OrderServiceImpl) AdminOrders(ctx context.Context, q OrderQuery) (model.Page[model.Order], error) {
	var page model.Page[model.Order]
	if err := s.api.JSON(ctx, http.MethodGet, "/admin/orders", queryOf(q), nil, &page); err != nil {
		if errs.Classify(err) == errs.KindForbidden {
			s.notify.Error("Access denied. Admin privileges required.")
		}
		return page, fmt.Errorf("admin orders: %w", err)
	}
	return page, nil
}

func (s *OrderServiceImpl) AdminOrder(ctx context.Context, id int64) (model.Order, error) {
	var out model.Order
	if err := s.api.JSON(ctx, http.MethodGet, idPath("/admin/orders", id), nil, nil, &out); err != nil {
		s.notify.Error("Failed to load order details.")
		return model.Order{}, fmt.Errorf("admin order %d: %w", id, err)
	}
	return out, nil
}

// Summarize computes display-only statistics over a visible page of orders.
// Customers are told apart by email, falling back to name.
func Summarize(orders []model.Order) model.OrderStats {
	st := model.OrderStats{TotalOrders: len(orders), TotalRevenue: decimal.Zero}
	seen := make(map[string]struct{})
	for _, o := range orders {
		st.TotalRevenue = st.TotalRevenue.Add(o.TotalPrice)
		key := strings.ToLower(strings.TrimSpace(o.CustomerEmail))
		if key == "" {
			key = strings.TrimSpace(o.CustomerName)
		}
		if key == "" {
			continue
		}
		seen[key] = struct{}{}
	}
	st.UniqueCustomers = len(seen)
	return st
}
