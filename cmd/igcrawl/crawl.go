package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"igcrawl/pkg/auth"
	"igcrawl/pkg/config"
	"igcrawl/pkg/crawler"
	errs "igcrawl/pkg/errors"
	"igcrawl/pkg/instagram"
	"igcrawl/pkg/logger"
	"igcrawl/pkg/metrics"
	"igcrawl/pkg/models"
	"igcrawl/pkg/ui"
	"igcrawl/pkg/ui/tui"
)

var (
	byID        bool
	seedOrder   int
	concurrency int
	rateLimit   int
	maxRetries  int
	accessToken string
	tokenName   string
	baseURL     string
	metricsAddr string
	useTUI      bool
	notify      bool
	asJSON      bool
	verbose     bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <handle|id>",
	Short: "Crawl an account and its follow graph",
	Long: `Crawl an account as an influencer (order 1) and everything reachable from it
up to order 3. Interrupted or partially failed crawls resume where they
stopped when run again.

An access token is taken from --access-token, IGCRAWL_ACCESS_TOKEN, the
config file, or the token store ('igcrawl auth login'), in that order.`,
	Example: `  # Crawl by handle
  igcrawl crawl alice

  # Crawl by account ID, four neighbors at a time
  igcrawl crawl 1574083 --id --concurrency 4

  # Pull an account as a candidate only (profile and media)
  igcrawl crawl 1574083 --id --order 3

  # Live dashboard and Prometheus metrics
  igcrawl crawl alice --tui --metrics-addr :9090`,
	Args: cobra.ExactArgs(1),
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	f := crawlCmd.Flags()
	f.BoolVar(&byID, "id", false, "treat the argument as an account ID")
	f.IntVar(&seedOrder, "order", int(models.OrderInfluencer), "order to pull the seed at (1-3)")
	f.IntVar(&concurrency, "concurrency", 0, "neighbors expanded in parallel (default from config)")
	f.IntVar(&rateLimit, "rate-limit", 0, "requests per hour (default from config)")
	f.IntVar(&maxRetries, "max-retries", 0, "attempts per remote call (default from config)")
	f.StringVar(&accessToken, "access-token", "", "API access token")
	f.StringVarP(&tokenName, "account", "a", "", "use a specific stored token")
	f.StringVar(&baseURL, "base-url", "", "API base URL")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.BoolVar(&useTUI, "tui", false, "show the live crawl dashboard")
	f.BoolVar(&notify, "notify", false, "send a desktop notification when the crawl ends")
	f.BoolVar(&asJSON, "json", false, "print the crawl report as JSON")
	f.BoolVarP(&verbose, "verbose", "v", false, "print one line per account")
}

// crawlFlags collects the overrides the user actually set
func crawlFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := cmd.Flags().Changed
	if changed("access-token") {
		flags["access-token"] = accessToken
	}
	if changed("account") {
		flags["account"] = tokenName
	}
	if changed("base-url") {
		flags["base-url"] = baseURL
	}
	if changed("concurrency") {
		flags["concurrency"] = concurrency
	}
	if changed("rate-limit") {
		flags["rate-limit"] = rateLimit
	}
	if changed("max-retries") {
		flags["max-retries"] = maxRetries
	}
	if changed("metrics-addr") {
		flags["metrics-addr"] = metricsAddr
	}
	return flags
}

func runCrawl(cmd *cobra.Command, args []string) error {
	order := models.Order(seedOrder)
	if !order.Valid() {
		return fmt.Errorf("--order must be between %d and %d", models.OrderInfluencer, models.MaxOrder)
	}

	cfg, err := loadConfig(crawlFlags(cmd))
	if err != nil {
		return err
	}
	if err := resolveToken(cfg); err != nil {
		return err
	}

	if useTUI {
		// keep log lines off the alternate screen
		logger.SetLogger(logger.NewNopLogger())
	}
	log := logger.GetLogger()
	seed := strings.TrimSpace(args[0])
	if !byID {
		seed = instagram.SanitizeHandle(seed)
		if !instagram.IsValidHandle(seed) {
			return fmt.Errorf("invalid handle %q", args[0])
		}
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if srv := metrics.StartServer(cfg.Metrics.Addr); srv != nil {
		log.WithField("addr", cfg.Metrics.Addr).Info("Serving metrics")
		defer srv.Close()
	}

	client := instagram.NewClient(cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		report *crawler.Report
		runErr error
	)
	if useTUI {
		report, runErr = crawlWithDashboard(ctx, cfg, store, client, seed, order)
	} else {
		display := ui.NewProgressDisplay(ui.Out, seed, verbose)
		c := crawler.New(store, client, &cfg.Crawl, log, crawler.WithObserver(display))
		report, runErr = runSeed(ctx, c, client, seed, order)
		display.Complete()
	}

	if notify {
		_ = ui.NewNotifier().CrawlFinished(report, runErr)
	}

	if runErr != nil {
		if errs.IsNotFound(runErr) && !byID {
			ui.PrintNotFound(seed)
			return fmt.Errorf("no account with handle %q", seed)
		}
		if report != nil && !asJSON {
			ui.PrintReport(report)
		}
		return runErr
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	ui.PrintReport(report)
	if report.Private > 0 && report.Pulled == 0 && !verbose {
		ui.PrintPrivateSkip(report.SeedID)
	}
	return nil
}

// runSeed starts the crawl at the requested order. Handles are resolved
// through the crawler at order 1 so the run journal keeps them.
func runSeed(ctx context.Context, c *crawler.Crawler, client *instagram.Client, seed string, order models.Order) (*crawler.Report, error) {
	if byID {
		return c.Pull(ctx, seed, order)
	}
	if order == models.OrderInfluencer {
		return c.CrawlHandle(ctx, seed)
	}

	id, err := client.ResolveHandle(ctx, seed)
	if err != nil {
		return nil, err
	}
	return c.Pull(ctx, id, order)
}

func crawlWithDashboard(ctx context.Context, cfg *config.Config, store crawler.Store, client *instagram.Client, seed string, order models.Order) (*crawler.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dash := tui.NewTUI(seed, cfg.RateLimit.RequestsPerHour)
	c := crawler.New(store, client, &cfg.Crawl, logger.GetLogger(), crawler.WithObserver(dash))

	type outcome struct {
		report *crawler.Report
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := runSeed(ctx, c, client, seed, order)
		dash.Finish(r, err)
		done <- outcome{r, err}
	}()

	if err := dash.Start(); err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("dashboard failed: %w", err)
	}

	// the user quit; a running crawl is cancelled and journaled as failed
	cancel()
	select {
	case out := <-done:
		return out.report, out.err
	case <-time.After(30 * time.Second):
		return nil, errors.New("crawl did not stop after cancellation")
	}
}

// resolveToken fills the access token from the token store when neither
// flags, environment nor config provided one.
func resolveToken(cfg *config.Config) error {
	if cfg.Instagram.AccessToken != "" {
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}

	var token *auth.Token
	if cfg.Instagram.Account != "" {
		token, err = manager.Retrieve(cfg.Instagram.Account)
	} else {
		token, err = manager.RetrieveDefault()
	}
	if err != nil {
		auth.ShowQuickTokenGuide(os.Stderr)
		return err
	}

	cfg.Instagram.AccessToken = token.AccessToken
	if cfg.Instagram.ClientID == "" {
		cfg.Instagram.ClientID = token.ClientID
	}
	logger.WithField("token", token.Name).Debug("Using stored token")
	return nil
}
