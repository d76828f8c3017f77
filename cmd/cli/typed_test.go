package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/and161185/flasheng/internal/errs"
	"github.com/and161185/flasheng/internal/notify"
	"github.com/and161185/flasheng/internal/store"
)

func Test_articleQuery_Defaults(t *testing.T) {
	t.Parallel()

	q := articleQuery(12, "  mug ", "5", "", "", "DESC", -3)
	got := q.Query().Encode()
	want := "minPrice=5&page=0&search=mug&size=12&sortBy=name&sortDir=desc"
	if got != want {
		t.Fatalf("query=%q, want %q", got, want)
	}
}

func Test_orderQuery_CustomerOnlyForAdmin(t *testing.T) {
	t.Parallel()

	mine := orderQuery(false, 10, "Jane", "2024-01-01", "", "", "", "", 1)
	if mine.Filters.CustomerName != "" {
		t.Fatalf("my orders must not filter by customer: %+v", mine.Filters)
	}
	if mine.Filters.StartDate != "2024-01-01" || mine.Page != 1 {
		t.Fatalf("unexpected query: %+v", mine)
	}

	all := orderQuery(true, 10, " Jane ", "", "", "7", "totalPrice", "asc", 0)
	if all.Filters.CustomerName != "Jane" || all.Filters.OrderID != "7" {
		t.Fatalf("admin filters: %+v", all.Filters)
	}
	if all.SortBy != "totalPrice" || all.SortDir != "asc" {
		t.Fatalf("admin sort: %s %s", all.SortBy, all.SortDir)
	}
}

func Test_queueItem_PerVariant(t *testing.T) {
	t.Parallel()

	if got := queueItem(store.CartVariant, 4, 2); got != (store.Item{Ref: 4, Available: 2}) {
		t.Fatalf("cart item: %+v", got)
	}
	if got := queueItem(store.PracticeVariant, 4, 2); got.Available != store.MaxPracticeCount {
		t.Fatalf("practice item: %+v", got)
	}
}

func Test_need_ReportsMissingFlags(t *testing.T) {
	t.Parallel()

	fs := newFlags("cart-set")
	fs.Int64("line", 0, "")
	fs.Int("qty", 0, "")
	if err := parse(fs, []string{"-qty", "2"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	err := need(fs, "line", "qty")
	if err == nil || err.Error() != "cart-set: need -line" {
		t.Fatalf("need: %v", err)
	}
	if err := parse(newFlags("x"), []string{"-nope"}); err == nil {
		t.Fatalf("unknown flag must fail")
	}
}

func Test_printJSON_Indents(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printJSON(&buf, map[string]int{"a": 1})
	if buf.String() != "{\n  \"a\": 1\n}\n" {
		t.Fatalf("printJSON=%q", buf.String())
	}
	var back map[string]int
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil || back["a"] != 1 {
		t.Fatalf("round trip: %v %v", back, err)
	}
}

func Test_notice_Prints(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var n notify.Notifier = notify.Multi{notify.Nop{}, notice{w: &buf}}
	n.Success("Added to cart")
	n.Error("Failed to load cart")
	if buf.String() != "Added to cart\nerror: Failed to load cart\n" {
		t.Fatalf("notice output %q", buf.String())
	}
}

func Test_report_SortsFieldErrors(t *testing.T) {
	t.Parallel()

	fe := errs.FieldErrors{"ccCvv": "CVV must be 3 digits", "deliveryZip": "ZIP code is required", "ccNumber": "Credit card number is required"}
	want := "ccCvv: CVV must be 3 digits\nccNumber: Credit card number is required\ndeliveryZip: ZIP code is required\n"
	for i := 0; i < 20; i++ {
		var buf bytes.Buffer
		report(&buf, fmt.Errorf("checkout: %w", fe))
		if buf.String() != want {
			t.Fatalf("report=%q, want %q", buf.String(), want)
		}
	}

	var buf bytes.Buffer
	report(&buf, errors.New("boom"))
	if buf.String() != "boom\n" {
		t.Fatalf("report=%q", buf.String())
	}
}

func Test_routes_CoverUsage(t *testing.T) {
	t.Parallel()

	for _, cmd := range []string{"login", "signup", "logout", "whoami", "articles", "flashcards", "cart",
		"cart-add", "cart-set", "cart-rm", "cart-clear", "checkout", "orders", "admin-orders",
		"profile", "passwd", "avatar", "practice", "tui"} {
		if _, ok := routes[cmd]; !ok {
			t.Fatalf("command %q has no route", cmd)
		}
	}
}
