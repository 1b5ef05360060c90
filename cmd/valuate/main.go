package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"valuator/internal/attachment"
	"valuator/internal/config"
	"valuator/internal/geo"
	"valuator/internal/logger"
	"valuator/internal/repository"
	"valuator/internal/service"
	"valuator/internal/utils"
)

var (
	// Global flags
	backendURL string
	verbose    bool

	cfg         *config.Config
	store       *repository.StateRepository
	clientState *service.ClientState
	deps        service.SessionDeps
)

var rootCmd = &cobra.Command{
	Use:   "valuate",
	Short: "AI property valuation from the command line",
	Long: `valuate fills one of the valuation forms (house price, house rent or
land price) from flags, submits it to the prediction service and prints the
estimate.

Examples:
  valuate house-price --field city=Bengaluru --field locality=Koramangala \
    --field area=1200 --field bedrooms=2 --field bathrooms=2 \
    --lat 12.9352 --lng 77.6245 --amenity "swimming pool"
  valuate token set <jwt>
  valuate domains`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "prediction service base URL (overrides BACKEND_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr at debug level")

	for _, d := range domainCommands() {
		rootCmd.AddCommand(d)
	}
	tokenCmd.AddCommand(tokenSetCmd, tokenClearCmd, tokenShowCmd)
	rootCmd.AddCommand(tokenCmd, domainsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and opens the client-state store shared by all
// subcommands
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	if backendURL != "" {
		cfg.Backend.BaseURL = backendURL
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log, err := logger.New(level, "console")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger.SetDefault(log)

	store, err = repository.NewStateRepository(cfg.State.Driver, cfg.State.DSN)
	if err != nil {
		return fmt.Errorf("failed to open client state: %w", err)
	}
	clientState = service.NewClientState(store)

	msgs := utils.NewMessages(cfg.Lang)
	deps = service.SessionDeps{
		Dispatcher: service.NewPredictionClient(&cfg.Backend, msgs),
		Tokens:     clientState,
		Encoder:    attachment.NewEncoder(cfg.Images.MaxBytes),
		TileLayer:  geo.TileLayer{Template: cfg.Maps.TileURL, MaxZoom: geo.MaxZoom, Attribution: cfg.Maps.Attribution},
		Messages:   msgs,
		Metrics:    service.NewMetrics(prometheus.NewRegistry()),
		Logger:     log,
	}
	if cfg.Maps.APIKey != "" {
		client, err := geo.NewClient(cfg.Maps.APIKey)
		if err != nil {
			return err
		}
		deps.Locator = geo.NewGoogleLocator(client)
		deps.Resolver = geo.NewGeocodingResolver(client)
	}
	return nil
}

func teardown() {
	if store != nil {
		_ = store.Close()
	}
	logger.Sync()
}
