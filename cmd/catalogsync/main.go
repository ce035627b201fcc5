package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mzurek/go-catalog-sync/config"
	"github.com/mzurek/go-catalog-sync/crawler"
	"github.com/mzurek/go-catalog-sync/importer"
	"github.com/mzurek/go-catalog-sync/models"
	"github.com/mzurek/go-catalog-sync/pipeline"
)

const usage = `Usage: catalogsync <command> [flags]

Commands:
  crawl       fetch the category tree and sample products from the source catalog
  import      create categories and products in the target system
  provision   provision carriers derived from sampled shipping data

Run "catalogsync <command> -h" for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "crawl":
		err = runCrawl(ctx, os.Args[2:])
	case "import":
		err = runImport(ctx, os.Args[2:])
	case "provision":
		err = runProvision(ctx, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", slog.String("command", os.Args[1]), slog.Any("error", err))
		os.Exit(1)
	}
}

func runCrawl(ctx context.Context, args []string) error {
	defaults := config.DefaultConfig()
	applyEnv(defaults)

	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	sourceURL := fs.String("source-url", defaults.SourceURL, "Source catalog base URL")
	topCategories := fs.Int("categories", defaults.TopCategories, "Top-level categories to keep")
	subcategories := fs.Int("subcategories", defaults.SubcategoriesPerNode, "Subcategories to keep per node")
	maxDepth := fs.Int("depth", defaults.MaxDepth, "Maximum category tree depth")
	targetProducts := fs.Int("products", defaults.TargetProducts, "Target number of products to sample")
	treeFile := fs.String("tree-file", defaults.TreeFile, "Category tree output file")
	productsFile := fs.String("products-file", defaults.ProductsFile, "Product records output file")
	csvFile := fs.String("csv-file", "", "Optional CSV export alongside the product document")
	timeout := fs.Duration("timeout", defaults.Timeout, "Per-request timeout")
	metricsAddr := fs.String("metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	verbose := fs.Bool("v", defaults.Verbose, "Enable verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	setupLogging(*verbose)

	cfg := defaults
	cfg.SourceURL = *sourceURL
	cfg.TopCategories = *topCategories
	cfg.SubcategoriesPerNode = *subcategories
	cfg.MaxDepth = *maxDepth
	cfg.TargetProducts = *targetProducts
	cfg.TreeFile = *treeFile
	cfg.ProductsFile = *productsFile
	cfg.Timeout = *timeout
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Info("starting crawl",
		slog.String("source_url", cfg.SourceURL),
		slog.Int("categories", cfg.TopCategories),
		slog.Int("target_products", cfg.TargetProducts),
	)

	c, err := crawler.New(cfg)
	if err != nil {
		return fmt.Errorf("initialising crawler: %w", err)
	}
	stopMetrics := serveMetrics(cfg.MetricsAddr, c.Metrics.Registry)
	defer stopMetrics()

	forest, err := c.FetchTree(ctx)
	if err != nil {
		return fmt.Errorf("fetching category tree: %w", err)
	}
	forest = crawler.Crop(forest, cfg.TopCategories, cfg.SubcategoriesPerNode, cfg.MaxDepth)
	slog.Info("category tree cropped", slog.Int("nodes", models.CountNodes(forest)))

	if err := c.DiscoverPagination(ctx, forest); err != nil {
		return fmt.Errorf("discovering pagination: %w", err)
	}
	estimated, residual, err := c.RebalanceTree(forest, cfg.TargetProducts)
	if err != nil {
		return fmt.Errorf("rebalancing page budget: %w", err)
	}
	slog.Info("page budget rebalanced",
		slog.Int("estimated_products", estimated),
		slog.Int("residual_debt", residual),
	)

	writer, err := createWriter(cfg.ProductsFile, *csvFile)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}

	p := pipeline.NewPipeline(ctx, writer, cfg)
	p.Start(cfg.Workers)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	start := time.Now()
	if err := c.SampleProducts(ctx, forest, p); err != nil {
		return fmt.Errorf("sampling products: %w", err)
	}
	if err := p.Close(); err != nil {
		return fmt.Errorf("pipeline shutdown: %w", err)
	}
	if err := writer.Validate(); err != nil {
		return fmt.Errorf("output validation: %w", err)
	}

	// The tree is saved after sampling so page counts and per-node
	// product ids reflect what was actually collected.
	if err := models.SaveTree(cfg.TreeFile, forest); err != nil {
		return fmt.Errorf("saving category tree: %w", err)
	}

	metrics := p.GetMetrics()
	processed, _ := metrics["processed_records"].(int64)
	slog.Info("crawl complete",
		slog.Int64("records", processed),
		slog.Duration("duration", time.Since(start).Round(time.Millisecond)),
		slog.String("tree_file", cfg.TreeFile),
		slog.String("products_file", cfg.ProductsFile),
	)
	return nil
}

func runImport(ctx context.Context, args []string) error {
	defaults := config.DefaultConfig()
	applyEnv(defaults)

	fs := flag.NewFlagSet("import", flag.ExitOnError)
	apiURL := fs.String("api-url", defaults.APIURL, "Target webservice base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "Target webservice key")
	workers := fs.Int("workers", defaults.Workers, "Concurrent product import workers")
	limit := fs.Int("limit", defaults.Limit, "Import at most this many products (0 = all)")
	homeCategory := fs.Int("home-category", defaults.HomeCategoryID, "Parent id for created top-level categories")
	treeFile := fs.String("tree-file", defaults.TreeFile, "Category tree input file")
	productsFile := fs.String("products-file", defaults.ProductsFile, "Product records input file")
	summaryFile := fs.String("summary-file", defaults.SummaryFile, "Run summary output file")
	timeout := fs.Duration("timeout", defaults.Timeout, "Per-request timeout")
	metricsAddr := fs.String("metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	verbose := fs.Bool("v", defaults.Verbose, "Enable verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	setupLogging(*verbose)

	cfg := defaults
	cfg.APIURL = *apiURL
	cfg.APIKey = *apiKey
	cfg.Workers = *workers
	cfg.Limit = *limit
	cfg.HomeCategoryID = *homeCategory
	cfg.TreeFile = *treeFile
	cfg.ProductsFile = *productsFile
	cfg.SummaryFile = *summaryFile
	cfg.Timeout = *timeout
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	forest, err := models.LoadTree(cfg.TreeFile)
	if err != nil {
		return err
	}
	records, dropped, err := models.LoadProducts(cfg.ProductsFile)
	if err != nil {
		return err
	}
	if dropped > 0 {
		slog.Warn("dropped invalid product records", slog.Int("dropped", dropped))
	}

	im, err := importer.New(cfg)
	if err != nil {
		return err
	}
	stopMetrics := serveMetrics(cfg.MetricsAddr, im.Metrics.Registry)
	defer stopMetrics()

	if err := im.TestConnection(ctx); err != nil {
		return fmt.Errorf("webservice connection check: %w", err)
	}

	start := time.Now()
	categoriesOK := im.CreateCategories(ctx, forest)
	productsOK := im.CreateProducts(ctx, records, cfg.Limit, cfg.Workers)

	summary := im.Ledger().Summary()
	if err := summary.Save(cfg.SummaryFile); err != nil {
		slog.Error("saving summary failed", slog.Any("error", err))
	}
	printImportSummary(summary, time.Since(start), cfg.SummaryFile)

	if !categoriesOK || !productsOK {
		return fmt.Errorf("import finished with %d failures", summary.FailedOperations)
	}
	return nil
}

func runProvision(ctx context.Context, args []string) error {
	defaults := config.DefaultConfig()
	applyEnv(defaults)

	fs := flag.NewFlagSet("provision", flag.ExitOnError)
	apiURL := fs.String("api-url", defaults.APIURL, "Target webservice base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "Target webservice key")
	databaseURL := fs.String("database-url", defaults.DatabaseURL, "Target database connection string")
	productsFile := fs.String("products-file", defaults.ProductsFile, "Product records input file")
	stateFile := fs.String("state-file", defaults.CarrierStateFile, "Carrier provisioning state file")
	timeout := fs.Duration("timeout", defaults.Timeout, "Per-request timeout")
	verbose := fs.Bool("v", defaults.Verbose, "Enable verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	setupLogging(*verbose)

	cfg := defaults
	cfg.APIURL = *apiURL
	cfg.APIKey = *apiKey
	cfg.DatabaseURL = *databaseURL
	cfg.ProductsFile = *productsFile
	cfg.CarrierStateFile = *stateFile
	cfg.Timeout = *timeout
	cfg.Verbose = *verbose
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database url is required for carrier provisioning")
	}

	records, dropped, err := models.LoadProducts(cfg.ProductsFile)
	if err != nil {
		return err
	}
	if dropped > 0 {
		slog.Warn("dropped invalid product records", slog.Int("dropped", dropped))
	}
	states, err := models.LoadCarrierStates(cfg.CarrierStateFile)
	if err != nil {
		return err
	}

	client, err := importer.NewClient(cfg.APIURL, cfg.APIKey, cfg.Timeout)
	if err != nil {
		return err
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to target database: %w", err)
	}
	defer pool.Close()

	ledger := importer.NewLedger()
	provisioner := importer.NewCarrierProvisioner(cfg, client, pool, ledger, states)
	states = provisioner.Provision(ctx, records)

	if err := models.SaveCarrierStates(cfg.CarrierStateFile, states); err != nil {
		return fmt.Errorf("saving carrier state: %w", err)
	}

	summary := ledger.Summary()
	slog.Info("carrier provisioning complete",
		slog.Int("created", summary.CreatedCarriers),
		slog.Int("failures", summary.FailedOperations),
		slog.String("state_file", cfg.CarrierStateFile),
	)
	if summary.FailedOperations > 0 {
		return fmt.Errorf("provisioning finished with %d failures", summary.FailedOperations)
	}
	return nil
}

// applyEnv layers environment overrides onto defaults before flags, so
// flags always win.
func applyEnv(cfg *config.Config) {
	if value, ok := config.EnvString("CATALOG_SOURCE_URL"); ok {
		cfg.SourceURL = value
	}
	if value, ok := config.EnvString("CATALOG_API_URL"); ok {
		cfg.APIURL = value
	}
	if value, ok := config.EnvString("CATALOG_API_KEY"); ok {
		cfg.APIKey = value
	}
	if value, ok := config.EnvString("CATALOG_DATABASE_URL"); ok {
		cfg.DatabaseURL = value
	}
	if value, ok, err := config.EnvInt("CATALOG_WORKERS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid CATALOG_WORKERS: %v\n", err)
		os.Exit(1)
	} else if ok {
		cfg.Workers = value
	}
	if value, ok, err := config.EnvInt("CATALOG_LIMIT"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid CATALOG_LIMIT: %v\n", err)
		os.Exit(1)
	} else if ok {
		cfg.Limit = value
	}
}

func createWriter(documentPath, csvPath string) (pipeline.OutputWriter, error) {
	if csvPath != "" {
		return pipeline.NewDualWriter(documentPath, csvPath)
	}
	return pipeline.NewDocumentWriter(documentPath)
}

func serveMetrics(addr string, registry *prometheus.Registry) func() {
	if addr == "" || registry == nil {
		return func() {}
	}
	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}

func printImportSummary(summary *models.Summary, duration time.Duration, summaryFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Import complete")
	fmt.Printf("  Categories:    %d\n", summary.CreatedCategories)
	fmt.Printf("  Products:      %d\n", summary.CreatedProducts)
	if summary.CreatedCarriers > 0 {
		fmt.Printf("  Carriers:      %d\n", summary.CreatedCarriers)
	}
	fmt.Printf("  Failures:      %d\n", summary.FailedOperations)
	fmt.Printf("  Duration:      %v\n", duration.Round(time.Millisecond))
	fmt.Printf("  Summary file:  %s\n", summaryFile)
	fmt.Println(separator)
}

func setupLogging(verbose bool) {
	logger, level := newLogger(verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
