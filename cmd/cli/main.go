// Command flasheng is a terminal client for the FlashEng shop API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/flasheng/internal/app"
	"github.com/and161185/flasheng/internal/config"
	"github.com/and161185/flasheng/internal/errs"
	"github.com/and161185/flasheng/internal/logger"
	"github.com/and161185/flasheng/internal/notify"
	"github.com/and161185/flasheng/internal/router"
)

// ---- utils ----

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	report(os.Stderr, err)
	os.Exit(1)
}

// report writes err for the user; field errors come one per line, sorted by field.
func report(w io.Writer, err error) {
	var fe errs.FieldErrors
	if errors.As(err, &fe) {
		for _, k := range fe.Fields() {
			fmt.Fprintf(w, "%s: %s\n", k, fe[k])
		}
		return
	}
	var apiErr *errs.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(w, "api error: status=%d category=%s msg=%s\n", apiErr.Status, apiErr.Kind, errs.Message(err, "request failed"))
		return
	}
	fmt.Fprintln(w, err)
}

// notice prints notifications for the user.
type notice struct{ w io.Writer }

func (n notice) Success(msg string) { fmt.Fprintln(n.w, msg) }
func (n notice) Error(msg string)   { fmt.Fprintln(n.w, "error: "+msg) }

func usage() {
	fmt.Fprintf(os.Stderr, `flasheng CLI
Usage:
  flasheng [-config file] [-api URL] [-log-level L] [-variant cart|practice] <cmd> [args]

Commands:
  version
  login        -email <e> -password <p>              (saves token)
  signup       -name <n> -email <e> -password <p> [-phone <ph>]
  logout
  whoami
  articles     [-search s] [-min p] [-max p] [-sort f] [-dir asc|desc] [-page n]
  flashcards   [-search s] [-category c] [-difficulty d] [-page n]
  cart
  cart-add     -id <ref> [-qty n]
  cart-set     -line <id> -qty <n>
  cart-rm      -line <id>
  cart-clear
  checkout     -name -street -city -state -zip -cc -exp -cvv
  orders       [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-id n] [-page n]
  admin-orders [-customer s] [-from ...] [-to ...] [-id n] [-page n] [-sort f] [-dir d]
  profile      [-name n] [-email e] [-phone ph]
  passwd       -current <p> -new <p> -confirm <p>
  avatar       -file <image>
  practice     [-mode m] [-shuffle] [-repeat]
  tui
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, restores the session and dispatches one command.
func main() {
	cfgPath := flag.String("config", "", "config file (default flasheng.yaml)")
	apiURL := flag.String("api", "", "API base URL (overrides api.base_url)")
	logLevel := flag.String("log-level", "", "log level (overrides log.level)")
	variant := flag.String("variant", "", "queue contract: cart or practice (overrides queue.variant)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	if cmd == "version" {
		fmt.Printf("flasheng %s (%s)\n", version, buildDate)
		return
	}
	if _, ok := routes[cmd]; !ok {
		usage()
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fail(err)
	}
	if *apiURL != "" {
		cfg.API.BaseURL = *apiURL
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *variant != "" {
		cfg.Queue.Variant = *variant
	}
	if cmd == "tui" && cfg.Log.Output == "stderr" {
		// The alternate screen owns the terminal.
		cfg.Log.Level = "error"
	}
	if err := cfg.Validate(); err != nil {
		fail(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fail(err)
	}
	defer func() { _ = log.Sync() }()

	notes := notify.Multi{notify.NewLog(log)}
	if cmd != "tui" {
		notes = append(notes, notice{w: os.Stderr})
	}
	a, err := app.New(cfg, log, app.WithNotifier(notes))
	if err != nil {
		fail(err)
	}
	defer func() { _ = a.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cmd != "tui" {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	if m := a.Metrics(); m != nil {
		go func() {
			srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("metrics exporter", zap.Error(err))
			}
		}()
	}

	a.Start(ctx)
	if err := run(ctx, a, cmd, flag.Args()[1:], os.Stdout); err != nil {
		fail(err)
	}
}

// routes maps every command to the page whose guards it must pass.
// An empty path means the command is not guarded.
var routes = map[string]string{
	"login":        router.Login,
	"signup":       router.Register,
	"logout":       "",
	"whoami":       "",
	"articles":     router.Home,
	"flashcards":   router.Flashcards,
	"cart":         router.Cart,
	"cart-add":     router.Cart,
	"cart-set":     router.Cart,
	"cart-rm":      router.Cart,
	"cart-clear":   router.Cart,
	"checkout":     router.Checkout,
	"orders":       router.Orders,
	"admin-orders": router.AdminOrders,
	"profile":      router.Profile,
	"passwd":       router.Profile,
	"avatar":       router.Profile,
	"practice":     router.Flashcards,
	"tui":          router.Home,
}

// redirectError reports a command refused by a route guard.
type redirectError struct{ to string }

func (e redirectError) Error() string { return "redirected to " + e.to }

// run resolves cmd's route and executes it against a started app.
func run(ctx context.Context, a *app.App, cmd string, args []string, out io.Writer) error {
	path, ok := routes[cmd]
	if !ok {
		return fmt.Errorf("unknown command %q", cmd)
	}
	if path != "" {
		if d := a.Navigate(ctx, path); d.Redirected {
			return redirectError{to: d.Path}
		}
	}

	switch cmd {
	case "login":
		return cmdLogin(ctx, a, args, out)
	case "signup":
		return cmdSignup(ctx, a, args, out)
	case "logout":
		a.Logout(ctx)
		fmt.Fprintln(out, "ok")
		return nil
	case "whoami":
		sess, ok := a.Session().Current()
		if !ok {
			return errors.New("not logged in")
		}
		printJSON(out, sess)
		return nil
	case "articles":
		return cmdArticles(ctx, a, args, out)
	case "flashcards":
		return cmdFlashcards(ctx, a, args, out)
	case "cart":
		printJSON(out, a.Queue().Snapshot())
		return nil
	case "cart-add":
		return cmdCartAdd(ctx, a, args, out)
	case "cart-set":
		return cmdCartSet(ctx, a, args, out)
	case "cart-rm":
		return cmdCartRemove(ctx, a, args, out)
	case "cart-clear":
		if err := a.Queue().ClearQueue(ctx); err != nil {
			return err
		}
		printJSON(out, a.Queue().Snapshot())
		return nil
	case "checkout":
		return cmdCheckout(ctx, a, args, out)
	case "orders":
		return cmdOrders(ctx, a, args, out, false)
	case "admin-orders":
		return cmdOrders(ctx, a, args, out, true)
	case "profile":
		return cmdProfile(ctx, a, args, out)
	case "passwd":
		return cmdPasswd(ctx, a, args, out)
	case "avatar":
		return cmdAvatar(ctx, a, args, out)
	case "practice":
		return cmdPractice(ctx, a, args, out)
	case "tui":
		return cmdTUI(ctx, a)
	}
	return fmt.Errorf("unknown command %q", cmd)
}
