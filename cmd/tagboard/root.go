package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tagging-ai/tagboard/internal/archive"
	"github.com/tagging-ai/tagboard/internal/backend"
	"github.com/tagging-ai/tagboard/internal/config"
	"github.com/tagging-ai/tagboard/internal/logging"
	"github.com/tagging-ai/tagboard/internal/records"
	"github.com/tagging-ai/tagboard/internal/session"
	"github.com/tagging-ai/tagboard/pkg/models"
)

// noSetup marks commands that run without config or session.
const noSetup = "no-setup"

var errNotLoggedIn = errors.New("not logged in, run `tagboard login`")

// cli holds global flags and the collaborators built from them.
type cli struct {
	configPath string
	verbose    bool
	jsonOutput bool

	cfg      *config.Config
	logger   *zap.Logger
	settings *config.SettingsFile
	prefs    models.Settings
	client   *backend.Client
	session  *session.Store
	archive  *archive.DB
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "tagboard",
		Short: "Sentiment and priority tagging from the terminal",
		Long: `tagboard talks to the text-analysis backend: analyze single texts or
CSV batches, browse and edit your history, export it, or serve the
web dashboard.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(*cobra.Command, []string) { c.close() },
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file (default ./tagboard.yaml or $CONFIG_PATH)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Debug logging")
	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "Output as JSON")

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.registerCmd(),
		c.whoamiCmd(),
		c.analyzeCmd(),
		c.batchCmd(),
		c.historyCmd(),
		c.showCmd(),
		c.editCmd(),
		c.deleteCmd(),
		c.browseCmd(),
		c.exportCmd(),
		c.statsCmd(),
		c.settingsCmd(),
		c.archiveCmd(),
		c.serveCmd(),
		versionCmd,
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if _, ok := cmd.Annotations[noSetup]; ok {
		return nil
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, c.verbose)
	if err != nil {
		return err
	}
	c.logger = logger

	c.settings = config.NewSettingsFile(cfg.Session.Dir)
	prefs, err := c.settings.Load()
	if err != nil {
		logger.Warn("failed to load settings, using defaults", zap.Error(err))
	}
	c.prefs = prefs

	effective, err := cfg.WithBaseURL(prefs.APIEndpoint)
	if err != nil {
		logger.Warn("ignoring api_endpoint from settings", zap.Error(err))
		effective = *cfg
	}
	c.cfg = &effective

	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	c.client = c.newClient(&http.Client{Jar: jar})

	jarStorage, err := session.NewJarStorage(jar, effective.Backend.BaseURL)
	if err != nil {
		return err
	}
	opts := []session.Option{
		session.WithStorage(session.NewFileStorage(effective.Session.Dir), jarStorage),
		session.WithLogger(logger),
	}
	if effective.Auth.JWKSURL != "" {
		v, err := session.NewJWKSVerifier(commandContext(cmd), effective.Auth.JWKSURL)
		if err != nil {
			return fmt.Errorf("failed to load JWKS: %w", err)
		}
		opts = append(opts, session.WithVerifier(v))
	}
	c.session = session.New(c.client, opts...)
	c.session.Probe()
	return nil
}

// newClient builds a backend client from the effective config on top of hc.
func (c *cli) newClient(hc *http.Client) *backend.Client {
	b := c.cfg.Backend
	return backend.New(b.BaseURL,
		backend.WithHTTPClient(hc),
		backend.WithTimeout(b.Timeout),
		backend.WithRateLimit(b.RateLimit, b.RateBurst),
		backend.WithPaths(backend.Paths{
			Login:    b.Paths.Login,
			Register: b.Paths.Register,
			Analyze:  b.Paths.Analyze,
			Batch:    b.Paths.Batch,
			History:  b.Paths.History,
			Export:   b.Paths.Export,
		}),
		backend.WithLogger(c.logger),
	)
}

func (c *cli) close() {
	if c.archive != nil {
		c.archive.Close()
		c.archive = nil
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

// authed returns a client bound to the session, or errNotLoggedIn.
func (c *cli) authed() (*backend.Client, error) {
	if c.session.State() != session.StateAuthenticated {
		return nil, errNotLoggedIn
	}
	return c.client.WithTokens(c.session), nil
}

// records builds a record store for the logged-in user. Confirmed changes
// are archived when history saving is on and a DSN is configured.
func (c *cli) records(ctx context.Context) (*records.Store, error) {
	client, err := c.authed()
	if err != nil {
		return nil, err
	}
	opts := []records.Option{records.WithLogger(c.logger)}
	if c.prefs.SaveHistory && c.cfg.Archive.Enabled() {
		db, err := c.openArchive(ctx)
		if err != nil {
			c.logger.Warn("archive unavailable", zap.Error(err))
		} else {
			opts = append(opts, records.WithArchive(db))
		}
	}
	return records.New(client, opts...), nil
}

func (c *cli) openArchive(ctx context.Context) (*archive.DB, error) {
	if c.archive != nil {
		return c.archive, nil
	}
	if !c.cfg.Archive.Enabled() {
		return nil, errors.New("archive.dsn is not configured")
	}
	db, err := archive.Open(ctx, c.cfg.Archive.DSN)
	if err != nil {
		return nil, err
	}
	c.archive = db
	return db, nil
}

// failure turns store and client errors into short CLI errors.
func failure(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errNotLoggedIn), records.IsAuth(err),
		errors.Is(err, backend.ErrNoToken), errors.Is(err, backend.ErrUnauthorized):
		return errNotLoggedIn
	}
	var e *records.Error
	if errors.As(err, &e) {
		return errors.New(e.Message)
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return errors.New(backend.UserMessage(err))
	}
	return err
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
