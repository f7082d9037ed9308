package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cardx/internal/models"
	"github.com/desertthunder/cardx/internal/repositories"
	"github.com/desertthunder/cardx/internal/services"
	"github.com/desertthunder/cardx/internal/shared"
	"github.com/desertthunder/cardx/internal/stream"
	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
)

// CredentialStore persists the active login for each server.
type CredentialStore interface {
	Save(c *models.Credential) error
	Current(server string) (*models.Credential, error)
	DeleteForServer(server string) (bool, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	api         *services.APIService
	credentials CredentialStore
	dialer      stream.Dialer
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	closeDB     func() error
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Credentials and Dialer are opened from Config on first use when nil.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	API         *services.APIService
	Credentials CredentialStore
	Dialer      stream.Dialer
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.API == nil {
		opts.API = services.NewAPIService(
			opts.Config.Server.BaseURL,
			&http.Client{Transport: opts.HTTPClient.Transport, Timeout: opts.Config.API.Timeout},
			services.WithRateLimit(opts.Config.API.RequestsPerSecond, opts.Config.API.Burst),
			services.WithLogger(opts.Logger),
		)
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		api:         opts.API,
		credentials: opts.Credentials,
		dialer:      opts.Dialer,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, uploadsCommand, cardsCommand, apiCommand, watchCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by the runner and the API client.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	r.api.SetLogger(l)
}

// Close releases the credential database if the runner opened it.
func (r *Runner) Close() error {
	if r.closeDB == nil {
		return nil
	}
	err := r.closeDB()
	r.closeDB = nil
	return err
}

// store returns the credential store, opening the configured database on first use.
func (r *Runner) store() (CredentialStore, error) {
	if r.credentials != nil {
		return r.credentials, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.credentials = repositories.NewCredentialRepository(db)
	r.closeDB = db.Close
	return r.credentials, nil
}

// authenticate loads the saved token for the configured server into the API client.
func (r *Runner) authenticate() (string, error) {
	if token := r.api.Token(); token != "" {
		return token, nil
	}

	creds, err := r.store()
	if err != nil {
		return "", err
	}

	cred, err := creds.Current(r.api.BaseURL())
	if errors.Is(err, repositories.ErrCredentialNotFound) {
		return "", fmt.Errorf("%w: no saved login for %s, run `cardx auth login`", shared.ErrNotAuthenticated, r.api.BaseURL())
	}
	if err != nil {
		return "", fmt.Errorf("failed to load credentials: %w", err)
	}

	r.api.SetToken(cred.AccessToken())
	r.logger.Debug("using saved login", "username", cred.Username(), "server", cred.Server())
	return cred.AccessToken(), nil
}

func (r *Runner) eventDialer() stream.Dialer {
	if r.dialer == nil {
		r.dialer = stream.NewHTTPDialer(r.config.EventsURL(), r.httpClient, r.logger)
	}
	return r.dialer
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// syncWriter serializes writes from the session callbacks and the printer goroutine.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
