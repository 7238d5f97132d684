package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"mvn-audit/config"
	"mvn-audit/depsdev"
	"mvn-audit/osv"
	"mvn-audit/storage"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type app struct {
	cfgFile  string
	verbose  bool
	settings *config.Settings
	log      *logrus.Logger
}

// NewRootCmd builds the command tree. Each call returns independent state.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "mvn-audit",
		Short: "Check Maven dependencies against the OSV vulnerability database",
		Long: `mvn-audit reads the output of 'mvn dependency:tree', looks every listed
package up in OSV and reports the advisories that affect it.

Examples:
  mvn dependency:tree | mvn-audit audit
  mvn-audit audit --file tree.txt --format json
  mvn-audit serve`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.init,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./mvn-audit.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose/debug logging")

	root.AddCommand(
		a.auditCmd(),
		a.inspectCmd(),
		a.serveCmd(),
		a.depsdevCmd(),
	)

	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) init(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.settings = settings
	a.log = newLogger(cmd.ErrOrStderr(), a.verbose)
	return nil
}

func newLogger(out io.Writer, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableQuote:    true,
		PadLevelText:    true,
	})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func (a *app) httpClient() *http.Client {
	return &http.Client{Timeout: a.settings.HTTPTimeout}
}

func (a *app) osvClient() *osv.Client {
	return &osv.Client{BaseURL: a.settings.OSVBaseURL, HTTPClient: a.httpClient()}
}

func (a *app) depsdevClient() *depsdev.Client {
	return &depsdev.Client{BaseURL: a.settings.DepsDevBaseURL, HTTPClient: a.httpClient()}
}

// openStore opens the SQLite cache and makes sure its schema exists.
func (a *app) openStore(ctx context.Context) (*storage.Storage, func(), error) {
	path := a.settings.SQLitePath
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open DB: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &storage.Storage{DB: db, TTL: a.settings.CacheTTL}
	if err := store.InitSchema(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	a.log.WithField("path", path).Debug("opened vulnerability cache")
	return store, func() { db.Close() }, nil
}
