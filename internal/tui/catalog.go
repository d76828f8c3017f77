// Package tui is a terminal catalog browser built on bubbletea.
//
// The view never fetches on its own: it drives a list-query controller and
// re-renders whenever the controller publishes a new result.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/and161185/flasheng/internal/errs"
	"github.com/and161185/flasheng/internal/listquery"
	"github.com/and161185/flasheng/internal/model"
	"github.com/and161185/flasheng/internal/store"
)

// Articles is the part of the catalog controller the browser drives.
type Articles interface {
	Bind(ctx context.Context)
	Load(ctx context.Context) error
	Retry(ctx context.Context) error
	SetSearch(s string)
	SetPage(ctx context.Context, n int) error
	State() listquery.State[listquery.PriceRange]
	Result() listquery.Result[model.Article]
	Subscribe(fn func(listquery.Result[model.Article]))
}

// Cart receives "add to cart" actions.
type Cart interface {
	AddToQueue(ctx context.Context, item store.Item, count int) error
	Count() int
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444"))
)

type (
	// resultMsg carries the controller's latest result into Update.
	resultMsg listquery.Result[model.Article]
	// actionMsg reports a finished user action.
	actionMsg struct {
		notice string
		err    error
	}
)

// Catalog is the bubbletea model of the article browser.
type Catalog struct {
	ctx      context.Context
	articles Articles
	cart     Cart
	changed  chan struct{}

	search  textinput.Model
	table   table.Model
	result  listquery.Result[model.Article]
	notice  string
	failure string
	width   int
}

// NewCatalog builds the browser. ctx bounds every request it triggers.
func NewCatalog(ctx context.Context, articles Articles, cart Cart) *Catalog {
	ti := textinput.New()
	ti.Placeholder = "Search articles"
	ti.Prompt = "/ "
	ti.CharLimit = 100

	tbl := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	c := &Catalog{
		ctx:      ctx,
		articles: articles,
		cart:     cart,
		changed:  make(chan struct{}, 1),
		search:   ti,
		table:    tbl,
		width:    80,
	}
	articles.Bind(ctx)
	articles.Subscribe(func(listquery.Result[model.Article]) {
		select {
		case c.changed <- struct{}{}:
		default:
		}
	})
	return c
}

func columns(width int) []table.Column {
	name := max(20, width-40)
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Name", Width: name},
		{Title: "Price", Width: 14},
		{Title: "Stock", Width: 8},
	}
}

// waitForChange blocks until the controller publishes and then reads its
// latest result, so bursts of updates collapse into one render.
func (c *Catalog) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-c.changed:
			return resultMsg(c.articles.Result())
		case <-c.ctx.Done():
			return nil
		}
	}
}

func (c *Catalog) load() tea.Cmd {
	return func() tea.Msg {
		if err := c.articles.Load(c.ctx); err != nil {
			return actionMsg{err: err}
		}
		return nil
	}
}

func (c *Catalog) Init() tea.Cmd {
	return tea.Batch(c.load(), c.waitForChange())
}

func (c *Catalog) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.table.SetColumns(columns(msg.Width))
		c.table.SetHeight(max(5, msg.Height-8))
		return c, nil

	case resultMsg:
		c.apply(listquery.Result[model.Article](msg))
		return c, c.waitForChange()

	case actionMsg:
		c.notice, c.failure = msg.notice, ""
		if msg.err != nil {
			c.failure = errs.Message(msg.err, "Request failed")
		}
		return c, nil

	case tea.KeyMsg:
		if c.search.Focused() {
			return c.updateSearch(msg)
		}
		return c.updateTable(msg)
	}
	return c, nil
}

func (c *Catalog) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return c, tea.Quit
	case "esc", "enter":
		c.search.Blur()
		c.table.Focus()
		return c, nil
	}
	var cmd tea.Cmd
	c.search, cmd = c.search.Update(msg)
	c.articles.SetSearch(strings.TrimSpace(c.search.Value()))
	return c, cmd
}

func (c *Catalog) updateTable(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	page := c.result.Page
	switch msg.String() {
	case "q", "ctrl+c":
		return c, tea.Quit
	case "/":
		c.table.Blur()
		return c, c.search.Focus()
	case "n", "right":
		if page.HasNext() {
			return c, c.setPage(page.Number + 1)
		}
		return c, nil
	case "p", "left":
		if page.HasPrev() {
			return c, c.setPage(page.Number - 1)
		}
		return c, nil
	case "r":
		return c, func() tea.Msg {
			if err := c.articles.Retry(c.ctx); err != nil {
				return actionMsg{err: err}
			}
			return nil
		}
	case "a", "enter":
		return c, c.addSelected()
	}
	var cmd tea.Cmd
	c.table, cmd = c.table.Update(msg)
	return c, cmd
}

func (c *Catalog) setPage(n int) tea.Cmd {
	return func() tea.Msg {
		if err := c.articles.SetPage(c.ctx, n); err != nil {
			return actionMsg{err: err}
		}
		return nil
	}
}

// Selected is the article under the cursor.
func (c *Catalog) Selected() (model.Article, bool) {
	i := c.table.Cursor()
	if i < 0 || i >= len(c.result.Page.Content) {
		return model.Article{}, false
	}
	return c.result.Page.Content[i], true
}

func (c *Catalog) addSelected() tea.Cmd {
	a, ok := c.Selected()
	if !ok || c.cart == nil {
		return nil
	}
	if a.AvailableQuantity <= 0 {
		c.failure = "Out of stock"
		return nil
	}
	return func() tea.Msg {
		if err := c.cart.AddToQueue(c.ctx, store.ArticleItem(a), 1); err != nil && !store.IsResync(err) {
			return actionMsg{err: err}
		}
		return actionMsg{notice: fmt.Sprintf("Added %q to cart (%d in cart)", a.Name, c.cart.Count())}
	}
}

func (c *Catalog) apply(r listquery.Result[model.Article]) {
	c.result = r
	rows := make([]table.Row, 0, len(r.Page.Content))
	for _, a := range r.Page.Content {
		stock := strconv.Itoa(a.AvailableQuantity)
		if a.AvailableQuantity <= 0 {
			stock = "out"
		}
		rows = append(rows, table.Row{
			strconv.FormatInt(a.ID, 10),
			a.Name,
			a.Price.StringFixed(2) + " " + a.Currency,
			stock,
		})
	}
	c.table.SetRows(rows)
	if c.table.Cursor() >= len(rows) {
		c.table.SetCursor(0)
	}
}

func (c *Catalog) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("FlashEng catalog"))
	b.WriteString("\n")
	b.WriteString(c.search.View())
	b.WriteString("\n")

	switch {
	case c.result.Loading && len(c.result.Page.Content) == 0:
		b.WriteString(boxStyle.Render("Loading..."))
	case len(c.result.Page.Content) == 0 && c.result.ErrMsg == "":
		b.WriteString(boxStyle.Render("No articles found"))
	default:
		b.WriteString(boxStyle.Render(c.table.View()))
	}
	b.WriteString("\n")

	p := c.result.Page
	status := fmt.Sprintf("Page %d of %d · %d articles", p.Number+1, max(1, p.TotalPages), p.TotalElements)
	if c.cart != nil {
		status += fmt.Sprintf(" · cart: %d", c.cart.Count())
	}
	b.WriteString(statusStyle.Render(status))
	b.WriteString("\n")

	switch {
	case c.result.ErrMsg != "":
		b.WriteString(errStyle.Render(c.result.ErrMsg + " (r to retry)"))
		b.WriteString("\n")
	case c.failure != "":
		b.WriteString(errStyle.Render(c.failure))
		b.WriteString("\n")
	case c.notice != "":
		b.WriteString(okStyle.Render(c.notice))
		b.WriteString("\n")
	}
	b.WriteString(statusStyle.Render("/ search · n/p page · a add to cart · r retry · q quit"))
	return b.String()
}

// Run starts the browser on the terminal and blocks until the user quits.
func Run(ctx context.Context, articles Articles, cart Cart) error {
	_, err := tea.NewProgram(NewCatalog(ctx, articles, cart), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
