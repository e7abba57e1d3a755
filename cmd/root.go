package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/tracker/internal/attachments"
	"github.com/joescharf/tracker/internal/auth"
	"github.com/joescharf/tracker/internal/config"
	"github.com/joescharf/tracker/internal/locale"
	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/output"
	"github.com/joescharf/tracker/internal/store"
	"github.com/joescharf/tracker/internal/tracker"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui  *output.UI
	app *deps

	verbose bool
	dryRun  bool
)

// deps is everything a command needs to work on the data directory.
type deps struct {
	cfg     *config.Config
	docs    *store.JSONStore
	tracker *tracker.Tracker
	files   *attachments.Store
	users   *auth.Users
	catalog *locale.Catalog
}

var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Tracker - a small self-hosted issue tracker",
	Long: `tracker keeps issues, comments and attachments in plain JSON files
and serves them through a login-protected web UI.

Every command works directly on the configured data directory, so the
CLI and a running server see the same issues.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmd)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/tracker/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(config.DefaultStateDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer())
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// Dependencies are opened lazily so config/version run without a data dir.
}

// rootRun handles `tracker` with no subcommand: a per-state summary.
func rootRun(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := getDeps(ctx)
	if err != nil {
		return cmd.Help()
	}

	counts, err := a.tracker.Counts(ctx)
	if err != nil {
		return err
	}
	total := 0
	for _, st := range models.AllStates() {
		total += counts[st]
	}
	ui.Info("%d issue(s) in %s", total, a.cfg.DataDir)
	for _, st := range models.AllStates() {
		fmt.Fprintf(ui.Out, "  %-12s %d\n", output.StateColor(string(st)), counts[st])
	}
	return nil
}

// getDeps returns the shared dependencies, opening the data directory and
// running first-run bootstrap on the first call.
func getDeps(ctx context.Context) (*deps, error) {
	if app != nil {
		return app, nil
	}

	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}

	docs, err := store.NewJSONStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open data directory: %w", err)
	}

	a := &deps{
		cfg:     cfg,
		docs:    docs,
		tracker: tracker.New(docs),
		files:   attachments.New(docs, cfg.UploadsDir),
		users:   auth.NewUsers(docs),
		catalog: locale.New(docs, cfg.Locale.Default),
	}
	if err := a.bootstrap(ctx); err != nil {
		return nil, err
	}

	app = a
	return app, nil
}

func (a *deps) bootstrap(ctx context.Context) error {
	if err := a.tracker.Init(ctx); err != nil {
		return fmt.Errorf("init issues: %w", err)
	}
	if err := a.files.Init(ctx); err != nil {
		return fmt.Errorf("init attachments: %w", err)
	}
	generated, err := a.users.Bootstrap(ctx, a.cfg.Bootstrap.AdminUser, a.cfg.Bootstrap.AdminPassword)
	if err != nil {
		return err
	}
	if generated != "" {
		ui.Warning("Created user %q with password %s (shown once, change it with 'tracker user passwd')",
			a.cfg.Bootstrap.AdminUser, generated)
	}
	if err := a.catalog.Init(ctx); err != nil {
		return fmt.Errorf("init locales: %w", err)
	}
	ui.VerboseLog("Data directory: %s", a.cfg.DataDir)
	return nil
}
