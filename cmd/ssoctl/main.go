// Command ssoctl is the management console for the SSO manager. It works
// against a running ssomgrd instance in API mode, or directly against a local
// JSON file store in demo mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ssomgr/internal/client"
	"ssomgr/internal/config"
	"ssomgr/internal/console"
	"ssomgr/internal/observability"
	"ssomgr/internal/storage/filestore"
)

const usageText = `Usage: ssoctl [--config file] <command> [args]

Commands:
  login       authenticate with username/password or --sso <providerID>
  callback    resume an SSO login with --token <jwt>
  logout      end the current session
  whoami      show the authenticated user
  providers   list|get|create|edit|delete provider records
  stats       show dashboard counters
`

// demo credentials accepted by the local backend, matching the server's
// bootstrap defaults.
const (
	demoUsername = "admin"
	demoPassword = "admin"
)

// app carries the wiring shared by every subcommand. The backend is chosen
// once at startup from configuration; commands never check the mode again.
type app struct {
	cfg      *config.ConsoleConfig
	logger   observability.Logger
	notifier *console.Notifier
	session  *console.SessionManager
	auth     *console.AuthFlow
	flows    *console.ProviderFlows
	api      *client.Client // nil in local mode
	close    func()
}

func main() {
	logCfg := observability.ConfigFromEnv()
	logCfg.Output = os.Stderr
	if os.Getenv("SSOMGR_LOG_FORMAT") == "" {
		logCfg.Format = "text"
	}
	logger := observability.NewLogger(logCfg)

	configPath := flag.String("config", envOr("SSOMGR_CONSOLE_CONFIG", ""), "path to YAML config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usageText) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConsole(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(cfg *config.ConsoleConfig, logger observability.Logger) (*app, error) {
	session := console.NewSessionManager(filepath.Join(cfg.StateDir, "session.json"), logger)
	if err := session.Restore(); err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	notifier := console.NewNotifier(os.Stdout, logger)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		notifier: notifier,
		session:  session,
		close:    func() {},
	}

	var backend console.Backend
	if cfg.APIMode {
		a.api = client.New(cfg.APIBaseURL, session.Token, cfg.Timeout, logger)
		backend = console.NewAPIBackend(a.api)
	} else {
		store := filestore.New(filepath.Join(cfg.StateDir, "providers.json"), logger)
		backend = console.NewLocalBackend(store, demoUsername, demoPassword)
		a.close = func() { _ = store.Close() }
	}

	a.auth = console.NewAuthFlow(backend, session, notifier, logger)
	a.flows = console.NewProviderFlows(backend, notifier, logger)
	return a, nil
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.cmdLogin(ctx, args)
	case "callback":
		return a.cmdCallback(ctx, args)
	case "logout":
		return a.auth.Logout(ctx)
	case "whoami":
		return a.cmdWhoami()
	case "providers":
		return a.cmdProviders(ctx, args)
	case "stats":
		return a.cmdStats(ctx)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "username for credential login")
	password := fs.String("password", "", "password for credential login")
	ssoProvider := fs.String("sso", "", "provider id for SSO login")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *ssoProvider != "" {
		return a.loginSSO(ctx, *ssoProvider)
	}
	if *username == "" || *password == "" {
		return fmt.Errorf("login requires --username and --password, or --sso <providerID>")
	}
	return a.auth.LoginWithCredentials(ctx, *username, *password)
}

// loginSSO starts the SSO handoff. In API mode the browser completes the
// flow against the server; the console only hands out the entry URL and the
// user returns with 'ssoctl callback --token'. In local mode there is no
// identity provider, so after checking the provider record the login is
// simulated the same way the credential path is.
func (a *app) loginSSO(ctx context.Context, providerID string) error {
	p := a.flows.Get(ctx, providerID)
	if p == nil {
		return fmt.Errorf("provider %q not found", providerID)
	}
	if !p.IsEnabled {
		return fmt.Errorf("provider %q is disabled", providerID)
	}

	if a.api != nil {
		a.notifier.Info("open this URL in a browser to sign in with %s:", p.Name)
		fmt.Fprintln(os.Stdout, a.api.SSOLoginURL(providerID))
		a.notifier.Info("you will land on %s with a token attached;", a.cfg.CallbackURL)
		a.notifier.Info("then run: ssoctl callback --token <jwt>")
		return nil
	}

	// Local demo mode: wait out the simulated redirect, then establish the
	// fabricated identity a real callback would produce.
	a.notifier.Info("contacting %s...", p.Name)
	select {
	case <-time.After(demoSSODelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return a.auth.LoginWithDemoSSO(ctx, p.Name)
}

// demoSSODelay simulates the browser redirect round trip in local mode.
const demoSSODelay = 800 * time.Millisecond

func (a *app) cmdCallback(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("callback", flag.ExitOnError)
	token := fs.String("token", "", "token returned by the SSO callback")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *token == "" {
		return fmt.Errorf("callback requires --token")
	}
	return a.auth.ResumeFromCallback(ctx, *token)
}

func (a *app) cmdWhoami() error {
	user := a.session.User()
	if user == nil {
		a.notifier.Info("not logged in")
		return nil
	}
	return printJSON(user)
}

func (a *app) cmdStats(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	return printJSON(a.flows.Stats(ctx))
}

func (a *app) requireLogin() error {
	if !a.session.IsAuthenticated() {
		return fmt.Errorf("not logged in; run 'ssoctl login' first")
	}
	return nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
