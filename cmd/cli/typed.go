// cmd/cli/typed.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/and161185/flasheng/internal/app"
	"github.com/and161185/flasheng/internal/listquery"
	"github.com/and161185/flasheng/internal/model"
	"github.com/and161185/flasheng/internal/service"
	"github.com/and161185/flasheng/internal/store"
	"github.com/and161185/flasheng/internal/tui"
)

// ------- flag helpers -------

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%s: %w", fs.Name(), err)
	}
	return nil
}

func need(fs *flag.FlagSet, names ...string) error {
	var missing []string
	for _, n := range names {
		if f := fs.Lookup(n); f == nil || f.Value.String() == "" || f.Value.String() == "0" {
			missing = append(missing, "-"+n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: need %s", fs.Name(), strings.Join(missing, " "))
	}
	return nil
}

// ------- builders -------

// articleQuery turns the articles flags into a catalog query.
func articleQuery(size int, search, minPrice, maxPrice, sortBy, dir string, page int) service.ArticleQuery {
	q := service.DefaultArticleQuery(size)
	q.Search = strings.TrimSpace(search)
	q.Filters = listquery.PriceRange{MinPrice: minPrice, MaxPrice: maxPrice}
	if sortBy != "" {
		q.SortBy = sortBy
	}
	if dir != "" {
		q.SortDir = strings.ToLower(dir)
	}
	q.Page = max(0, page)
	return q
}

// orderQuery builds a my-orders or admin-orders query.
func orderQuery(admin bool, size int, customer, from, to, id, sortBy, dir string, page int) service.OrderQuery {
	q := service.DefaultMyOrdersQuery(size)
	if admin {
		q = service.DefaultAdminOrdersQuery(size)
		q.Filters.CustomerName = strings.TrimSpace(customer)
	}
	q.Filters.StartDate, q.Filters.EndDate, q.Filters.OrderID = from, to, id
	if sortBy != "" {
		q.SortBy = sortBy
	}
	if dir != "" {
		q.SortDir = strings.ToLower(dir)
	}
	q.Page = max(0, page)
	return q
}

// queueItem is what cart-add queues. The API enforces article stock, so the
// requested quantity is the only local ceiling.
func queueItem(v store.Variant, id int64, qty int) store.Item {
	if v.Name == store.PracticeVariant.Name {
		return store.FlashcardItem(model.Flashcard{ID: id})
	}
	return store.Item{Ref: id, Available: qty}
}

// tolerateResync treats a mutation whose follow-up fetch failed as done.
func tolerateResync(err error) error {
	if store.IsResync(err) {
		fmt.Fprintln(os.Stderr, "warning: saved, but the refreshed queue could not be loaded")
		return nil
	}
	return err
}

// ------- commands -------

func cmdLogin(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("login")
	email := fs.String("email", "", "email")
	pass := fs.String("password", "", "password")
	if err := parse(fs, args); err != nil {
		return err
	}
	sess, err := a.Login(ctx, model.Credentials{Email: *email, Password: *pass})
	if err != nil {
		return err
	}
	printJSON(out, sess)
	return nil
}

func cmdSignup(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("signup")
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email")
	pass := fs.String("password", "", "password")
	confirm := fs.String("confirm", "", "password confirmation (defaults to -password)")
	phone := fs.String("phone", "", "phone (optional)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *confirm == "" {
		*confirm = *pass
	}
	sess, err := a.Signup(ctx, model.SignupRequest{
		Name: *name, Email: *email, Phone: *phone, Password: *pass, ConfirmPassword: *confirm,
	})
	if err != nil {
		return err
	}
	printJSON(out, sess)
	return nil
}

func cmdArticles(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("articles")
	search := fs.String("search", "", "name or description contains")
	minPrice := fs.String("min", "", "minimum price")
	maxPrice := fs.String("max", "", "maximum price")
	sortBy := fs.String("sort", "", "name, price, availableQuantity or createdAt")
	dir := fs.String("dir", "", "asc or desc")
	page := fs.Int("page", 0, "zero-based page")
	if err := parse(fs, args); err != nil {
		return err
	}
	q := articleQuery(a.Config().List.CatalogPageSize, *search, *minPrice, *maxPrice, *sortBy, *dir, *page)
	res, err := a.Articles().List(ctx, q)
	if err != nil {
		return err
	}
	printJSON(out, res)
	return nil
}

func cmdFlashcards(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("flashcards")
	search := fs.String("search", "", "word or translation contains")
	category := fs.String("category", "", "category")
	difficulty := fs.String("difficulty", "", "Beginner, Intermediate or Advanced")
	page := fs.Int("page", 0, "zero-based page")
	if err := parse(fs, args); err != nil {
		return err
	}
	q := service.DefaultFlashcardQuery(a.Config().List.FlashcardPageSize)
	q.Search = strings.TrimSpace(*search)
	q.Filters = listquery.CardFilters{Category: *category, Difficulty: *difficulty}
	q.Page = max(0, *page)
	res, err := a.FlashcardService().List(ctx, q)
	if err != nil {
		return err
	}
	printJSON(out, res)
	return nil
}

func cmdCartAdd(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("cart-add")
	id := fs.Int64("id", 0, "article or flashcard id")
	qty := fs.Int("qty", 1, "quantity")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := need(fs, "id"); err != nil {
		return err
	}
	q := a.Queue()
	if err := tolerateResync(q.AddToQueue(ctx, queueItem(q.Variant(), *id, *qty), *qty)); err != nil {
		return err
	}
	printJSON(out, q.Snapshot())
	return nil
}

func cmdCartSet(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("cart-set")
	line := fs.Int64("line", 0, "line id")
	qty := fs.Int("qty", 0, "new quantity")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := need(fs, "line", "qty"); err != nil {
		return err
	}
	if err := tolerateResync(a.Queue().UpdateItem(ctx, *line, *qty)); err != nil {
		return err
	}
	printJSON(out, a.Queue().Snapshot())
	return nil
}

func cmdCartRemove(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("cart-rm")
	line := fs.Int64("line", 0, "line id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := need(fs, "line"); err != nil {
		return err
	}
	if err := tolerateResync(a.Queue().RemoveItem(ctx, *line)); err != nil {
		return err
	}
	printJSON(out, a.Queue().Snapshot())
	return nil
}

func cmdCheckout(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("checkout")
	var c model.Checkout
	fs.StringVar(&c.DeliveryName, "name", "", "delivery name")
	fs.StringVar(&c.DeliveryStreet, "street", "", "street")
	fs.StringVar(&c.DeliveryCity, "city", "", "city")
	fs.StringVar(&c.DeliveryState, "state", "", "two-letter state")
	fs.StringVar(&c.DeliveryZip, "zip", "", "ZIP code")
	fs.StringVar(&c.CCNumber, "cc", "", "card number")
	fs.StringVar(&c.CCExpiration, "exp", "", "card expiry MM/YY")
	fs.StringVar(&c.CCCvv, "cvv", "", "card CVV")
	if err := parse(fs, args); err != nil {
		return err
	}
	order, err := a.PlaceOrder(ctx, c)
	if err != nil {
		return err
	}
	printJSON(out, order)
	return nil
}

func cmdOrders(ctx context.Context, a *app.App, args []string, out io.Writer, admin bool) error {
	name := "orders"
	if admin {
		name = "admin-orders"
	}
	fs := newFlags(name)
	customer := fs.String("customer", "", "customer name contains (admin only)")
	from := fs.String("from", "", "start date YYYY-MM-DD")
	to := fs.String("to", "", "end date YYYY-MM-DD")
	id := fs.String("id", "", "order id")
	sortBy := fs.String("sort", "", "createdAt, totalPrice or status")
	dir := fs.String("dir", "", "asc or desc")
	page := fs.Int("page", 0, "zero-based page")
	if err := parse(fs, args); err != nil {
		return err
	}
	q := orderQuery(admin, a.Config().List.OrderPageSize, *customer, *from, *to, *id, *sortBy, *dir, *page)
	if !admin {
		res, err := a.Orders().MyOrders(ctx, q)
		if err != nil {
			return err
		}
		printJSON(out, res)
		return nil
	}
	res, err := a.Orders().AdminOrders(ctx, q)
	if err != nil {
		return err
	}
	printJSON(out, struct {
		Page  model.Page[model.Order] `json:"page"`
		Stats model.OrderStats        `json:"stats"`
	}{res, service.Summarize(res.Content)})
	return nil
}

func cmdProfile(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("profile")
	name := fs.String("name", "", "new name")
	email := fs.String("email", "", "new email")
	phone := fs.String("phone", "", "new phone")
	if err := parse(fs, args); err != nil {
		return err
	}
	p, err := a.Profile().Get(ctx)
	if err != nil {
		return err
	}
	if *name == "" && *email == "" && *phone == "" {
		printJSON(out, p)
		return nil
	}
	upd := model.ProfileUpdate{Name: p.Name, Email: p.Email, Phone: p.Phone}
	if *name != "" {
		upd.Name = *name
	}
	if *email != "" {
		upd.Email = *email
	}
	if *phone != "" {
		upd.Phone = *phone
	}
	p, err = a.Profile().Update(ctx, upd)
	if err != nil {
		return err
	}
	printJSON(out, p)
	return nil
}

func cmdPasswd(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("passwd")
	var p model.PasswordChange
	fs.StringVar(&p.CurrentPassword, "current", "", "current password")
	fs.StringVar(&p.NewPassword, "new", "", "new password")
	fs.StringVar(&p.ConfirmPassword, "confirm", "", "new password again")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := a.Profile().ChangePassword(ctx, p); err != nil {
		return err
	}
	fmt.Fprintln(out, "ok")
	return nil
}

func cmdAvatar(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("avatar")
	path := fs.String("file", "", "image file")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := need(fs, "file"); err != nil {
		return err
	}
	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	defer f.Close()
	res, err := a.Profile().UploadImage(ctx, filepath.Base(*path), f)
	if err != nil {
		return err
	}
	printJSON(out, res)
	return nil
}

func cmdPractice(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("practice")
	var cfg model.PracticeConfig
	fs.StringVar(&cfg.Mode, "mode", "mixed", "practice mode")
	fs.BoolVar(&cfg.ShuffleCards, "shuffle", false, "shuffle cards")
	fs.BoolVar(&cfg.RepeatIncorrect, "repeat", false, "repeat incorrect answers")
	if err := parse(fs, args); err != nil {
		return err
	}
	if a.Queue().Variant().Name != store.PracticeVariant.Name {
		return errors.New("practice: needs the practice queue (-variant practice)")
	}
	sess, err := a.Queue().StartPracticeSession(ctx, cfg)
	if err != nil && !store.IsResync(err) {
		return err
	}
	printJSON(out, sess)
	return nil
}

func cmdTUI(ctx context.Context, a *app.App) error {
	return tui.Run(ctx, a.Catalog(), a.Queue())
}
