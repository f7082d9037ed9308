package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/cardx/internal/models"
	"github.com/desertthunder/cardx/internal/repositories"
	"github.com/desertthunder/cardx/internal/services"
	"github.com/desertthunder/cardx/internal/shared"
	"github.com/desertthunder/cardx/internal/stream/streamtest"
	tu "github.com/desertthunder/cardx/internal/testing"
	"github.com/urfave/cli/v3"
)

type memCredentials struct {
	mu       sync.Mutex
	byServer map[string]*models.Credential
}

func newMemCredentials(creds ...*models.Credential) *memCredentials {
	m := &memCredentials{byServer: map[string]*models.Credential{}}
	for _, c := range creds {
		m.byServer[c.Server()] = c
	}
	return m
}

func (m *memCredentials) Save(c *models.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byServer[c.Server()] = c
	return nil
}

func (m *memCredentials) Current(server string) (*models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byServer[server]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repositories.ErrCredentialNotFound, server)
	}
	return c, nil
}

func (m *memCredentials) DeleteForServer(server string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byServer[server]
	delete(m.byServer, server)
	return ok, nil
}

// backend is a fake REST API that accepts the bearer token "tok-1".
func backend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"detail":"Not authenticated"}`))
				return
			}
			h(w, r)
		}
	}
	writeJSON := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"access_token":"tok-1","token_type":"bearer"}`)
	})
	mux.HandleFunc("GET /auth/me", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"username":"ada","email":"ada@example.com","role":"user"}`)
	}))
	mux.HandleFunc("GET /uploads/", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"items":[{"id":1,"filename":"bio.pdf","status":"done"},{"id":2,"filename":"chem.pdf","status":"generating"}],"total_pages":2}`)
	}))
	mux.HandleFunc("GET /uploads/{id}/text", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, `{"filename":"bio.pdf","text":"Cells are small."}`)
	}))
	mux.HandleFunc("GET /cards/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[{"id":10,"upload_id":1,"question":"What are cells?","answer":"Small."}]`)
	}))
	mux.HandleFunc("DELETE /uploads/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("POST /upload-pdf", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"id":3,"filename":"notes.pdf","preview":"Chapter 1"}`)
	}))
	mux.HandleFunc("POST /ai/generate_cards/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "3" {
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, `{"detail":"Upload not found"}`)
			return
		}
		writeJSON(w, `{"created":2}`)
	}))
	mux.HandleFunc("POST /cards/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"id":11,"upload_id":1,"question":"Q?","answer":"A."}`)
	}))
	mux.HandleFunc("DELETE /cards/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "10" {
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, `{"detail":"Card not found"}`)
			return
		}
		writeJSON(w, `{"ok":true}`)
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type fixture struct {
	runner *Runner
	output *bytes.Buffer
	creds  *memCredentials
	dialer *streamtest.Dialer
	server *httptest.Server
}

func newFixture(t *testing.T, creds ...*models.Credential) *fixture {
	t.Helper()
	srv := backend(t)
	f := &fixture{
		output: &bytes.Buffer{},
		creds:  newMemCredentials(creds...),
		dialer: &streamtest.Dialer{},
		server: srv,
	}
	f.runner = NewRunner(RunnerOpts{
		API:         services.NewAPIService(srv.URL, srv.Client()),
		Credentials: f.creds,
		Dialer:      f.dialer,
		Logger:      shared.NewLogger(io.Discard),
		Output:      f.output,
	})
	return f
}

func (f *fixture) loggedIn() *models.Credential {
	return models.NewCredential(f.server.URL, "ada", "tok-1", "bearer")
}

func (f *fixture) run(args ...string) error {
	app := &cli.Command{
		Name:      "cardx",
		Commands:  f.runner.register(),
		Writer:    io.Discard,
		ErrWriter: io.Discard,
	}
	return app.Run(context.Background(), append([]string{"cardx"}, args...))
}

func newLoggedInFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.creds.Save(f.loggedIn())
	return f
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			api := services.NewAPIService("http://example.test", nil)
			creds := newMemCredentials()

			runner := NewRunner(RunnerOpts{
				Config:      config,
				Logger:      logger,
				Output:      output,
				HTTPClient:  httpClient,
				API:         api,
				Credentials: creds,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
			if runner.credentials != creds {
				t.Error("expected credentials to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Fatal("expected default config to be set")
			}
			if runner.api.BaseURL() != runner.config.Server.BaseURL {
				t.Errorf("expected api to use %s, got %s", runner.config.Server.BaseURL, runner.api.BaseURL())
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "auth", "uploads", "cards", "api", "watch", "tui"} {
			if !names[want] {
				t.Errorf("expected %q command", want)
			}
		}
	})

	t.Run("authenticate", func(t *testing.T) {
		t.Run("loads the saved token", func(t *testing.T) {
			f := newLoggedInFixture(t)

			token, err := f.runner.authenticate()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token != "tok-1" || f.runner.api.Token() != "tok-1" {
				t.Errorf("expected tok-1, got %q / %q", token, f.runner.api.Token())
			}
		})

		t.Run("without a login", func(t *testing.T) {
			f := newFixture(t)

			_, err := f.runner.authenticate()
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("store opens the configured database", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(t.TempDir(), "cardx.db")
		runner := NewRunner(RunnerOpts{Config: config, Logger: shared.NewLogger(io.Discard)})
		defer runner.Close()

		creds, err := runner.store()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := creds.Save(models.NewCredential("http://a.test", "ada", "tok", "")); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		again, _ := runner.store()
		if again != creds {
			t.Error("expected the store to be opened once")
		}

		if err := runner.Close(); err != nil {
			t.Errorf("expected clean close, got %v", err)
		}
		tu.AssertFileExists(t, config.Database.Path)
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("login saves the token", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run("auth", "login", "-u", "ada", "-p", "secret"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		cred, err := f.creds.Current(f.server.URL)
		if err != nil {
			t.Fatalf("expected saved credential, got %v", err)
		}
		if cred.AccessToken() != "tok-1" || cred.Username() != "ada" {
			t.Errorf("unexpected credential %s/%s", cred.Username(), cred.AccessToken())
		}
		if !strings.Contains(f.output.String(), "Logged in as ada") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("login requires a password", func(t *testing.T) {
		t.Setenv("CARDX_PASSWORD", "")
		f := newFixture(t)

		err := f.run("auth", "login", "-u", "ada")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("status reports the account", func(t *testing.T) {
		f := newLoggedInFixture(t)

		if err := f.run("auth", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := f.output.String()
		for _, want := range []string{"Saved login: ada", "✓ Authenticated", "ada@example.com"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("status with a rejected token", func(t *testing.T) {
		f := newFixture(t)
		f.creds.Save(models.NewCredential(f.server.URL, "ada", "stale", "bearer"))

		if err := f.run("auth", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), "Token rejected") {
			t.Errorf("expected rejection notice, got:\n%s", f.output.String())
		}
	})

	t.Run("logout forgets the login", func(t *testing.T) {
		f := newLoggedInFixture(t)

		if err := f.run("auth", "logout"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := f.creds.Current(f.server.URL); !errors.Is(err, repositories.ErrCredentialNotFound) {
			t.Errorf("expected credential to be removed, got %v", err)
		}

		f.output.Reset()
		if err := f.run("auth", "logout"); err != nil {
			t.Fatalf("expected second logout to succeed, got %v", err)
		}
		if !strings.Contains(f.output.String(), "Not logged in") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})
}

func TestUploadsCommands(t *testing.T) {
	t.Run("list renders csv", func(t *testing.T) {
		f := newLoggedInFixture(t)

		if err := f.run("uploads", "list", "--format", "csv"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := f.output.String()
		if !strings.Contains(out, "bio.pdf") || !strings.Contains(out, "chem.pdf") {
			t.Errorf("expected both uploads in output:\n%s", out)
		}
	})

	t.Run("list writes to a file", func(t *testing.T) {
		f := newLoggedInFixture(t)
		path := filepath.Join(t.TempDir(), "uploads.json")

		if err := f.run("uploads", "list", "--format", "json", "-o", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		data := tu.MustReadFile(t, path)
		if !strings.Contains(string(data), `"total_pages": 2`) {
			t.Errorf("expected total_pages in file, got:\n%s", data)
		}
		if f.output.Len() != 0 {
			t.Errorf("expected nothing on stdout, got %q", f.output.String())
		}
	})

	t.Run("list rejects unknown format", func(t *testing.T) {
		f := newLoggedInFixture(t)

		err := f.run("uploads", "list", "--format", "xml")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("list refuses xlsx on stdout", func(t *testing.T) {
		f := newLoggedInFixture(t)

		err := f.run("uploads", "list", "--format", "xlsx")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("list writes xlsx to a file", func(t *testing.T) {
		f := newLoggedInFixture(t)
		path := filepath.Join(t.TempDir(), "uploads.xlsx")

		if err := f.run("uploads", "list", "--format", "xlsx", "-o", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if data := tu.MustReadFile(t, path); !strings.HasPrefix(data, "PK") {
			t.Errorf("expected a zip container, got %d bytes", len(data))
		}
	})

	t.Run("list without login", func(t *testing.T) {
		f := newFixture(t)

		err := f.run("uploads", "list")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("show prints text", func(t *testing.T) {
		f := newLoggedInFixture(t)

		if err := f.run("uploads", "show", "1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), "Cells are small.") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("show unknown upload", func(t *testing.T) {
		f := newLoggedInFixture(t)

		err := f.run("uploads", "show", "99")
		if !errors.Is(err, shared.ErrUploadNotFound) {
			t.Errorf("expected ErrUploadNotFound, got %v", err)
		}
	})

	t.Run("cards exports markdown", func(t *testing.T) {
		f := newLoggedInFixture(t)

		if err := f.run("uploads", "cards", "1", "--format", "md"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), "What are cells?") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("delete", func(t *testing.T) {
		f := newLoggedInFixture(t)

		if err := f.run("uploads", "delete", "#2"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), "Deleted upload #2") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("invalid ids", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
			want error
		}{
			{"missing", []string{"uploads", "delete"}, shared.ErrMissingArgument},
			{"not a number", []string{"uploads", "delete", "abc"}, shared.ErrInvalidArgument},
			{"zero", []string{"uploads", "show", "0"}, shared.ErrInvalidArgument},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newLoggedInFixture(t)
				if err := f.run(tt.args...); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("clear requires confirmation", func(t *testing.T) {
		f := newLoggedInFixture(t)

		err := f.run("uploads", "clear")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("upload sends the pdf", func(t *testing.T) {
		f := newLoggedInFixture(t)
		path := filepath.Join(t.TempDir(), "notes.pdf")
		if err := os.WriteFile(path, []byte("%PDF-1.4"), 0644); err != nil {
			t.Fatal(err)
		}

		if err := f.run("uploads", "upload", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := f.output.String()
		if !strings.Contains(out, "Uploaded notes.pdf as #3") || !strings.Contains(out, "Chapter 1") {
			t.Errorf("unexpected output %q", out)
		}
		if strings.Contains(out, "Generated") {
			t.Errorf("expected no generation without --generate, got %q", out)
		}
	})

	t.Run("upload with generate", func(t *testing.T) {
		f := newLoggedInFixture(t)
		path := filepath.Join(t.TempDir(), "notes.pdf")
		if err := os.WriteFile(path, []byte("%PDF-1.4"), 0644); err != nil {
			t.Fatal(err)
		}

		if err := f.run("uploads", "upload", "--generate", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), "Generated 2 flashcards for #3") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("generate", func(t *testing.T) {
		f := newLoggedInFixture(t)

		if err := f.run("uploads", "generate", "#3"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), "Generated 2 flashcards for #3") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("generate unknown upload", func(t *testing.T) {
		f := newLoggedInFixture(t)

		err := f.run("uploads", "generate", "99")
		if !errors.Is(err, shared.ErrUploadNotFound) {
			t.Errorf("expected ErrUploadNotFound, got %v", err)
		}
	})
}

func TestCardsCommands(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		f := newLoggedInFixture(t)

		if err := f.run("cards", "list", "1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), "Q1: What are cells?") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("add", func(t *testing.T) {
		f := newLoggedInFixture(t)

		if err := f.run("cards", "add", "1", "-q", "Q?", "-a", "A."); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), "Added card #11 to upload #1") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("add requires an answer", func(t *testing.T) {
		f := newLoggedInFixture(t)

		if err := f.run("cards", "add", "1", "-q", "Q?"); err == nil {
			t.Error("expected missing --answer to fail")
		}
	})

	t.Run("delete", func(t *testing.T) {
		f := newLoggedInFixture(t)

		if err := f.run("cards", "delete", "10"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), "Deleted card #10") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("delete unknown card", func(t *testing.T) {
		f := newLoggedInFixture(t)

		err := f.run("cards", "delete", "77")
		if !errors.Is(err, shared.ErrCardNotFound) {
			t.Errorf("expected ErrCardNotFound, got %v", err)
		}
	})

	t.Run("delete rejects a bad id", func(t *testing.T) {
		f := newLoggedInFixture(t)

		err := f.run("cards", "delete", "abc")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestSetupDatabase(t *testing.T) {
	orig := tu.MustGetwd(t)
	dir := t.TempDir()
	tu.MustChdir(t, dir)
	t.Cleanup(func() { tu.MustChdir(t, orig) })

	f := newFixture(t)
	if err := f.run("setup", "database"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
	tu.AssertFileExists(t, filepath.Join(dir, "cardx.db"))
	if !strings.Contains(f.output.String(), "Database ready at ./cardx.db") {
		t.Errorf("unexpected output %q", f.output.String())
	}

	t.Run("reuses an existing config", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run("setup", "database", "--config", "config.toml"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), "Database ready") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})
}

func TestUploadsExport(t *testing.T) {
	f := newLoggedInFixture(t)
	dir := filepath.Join(t.TempDir(), "export")

	if err := f.run("uploads", "export", "-d", dir); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	tu.AssertDirExists(t, dir)
	out := f.output.String()
	if !strings.Contains(out, "Exported 1 of 2 uploads") || !strings.Contains(out, "pass --all") {
		t.Errorf("unexpected output:\n%s", out)
	}
	data := tu.MustReadFile(t, filepath.Join(dir, "1_bio.md"))
	if !strings.Contains(string(data), "What are cells?") {
		t.Errorf("expected card in export, got:\n%s", data)
	}
	tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))
}

func TestAPICommands(t *testing.T) {
	t.Run("get prints JSON", func(t *testing.T) {
		f := newLoggedInFixture(t)

		if err := f.run("api", "get", "/auth/me"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), `"username": "ada"`) {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("post rejects invalid JSON", func(t *testing.T) {
		f := newLoggedInFixture(t)

		err := f.run("api", "post", "/auth/login", "-d", "{nope")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		f := newLoggedInFixture(t)

		err := f.run("api", "get", "/missing")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestWatch(t *testing.T) {
	waitForDial := func(t *testing.T, d *streamtest.Dialer) *streamtest.Channel {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if ch := d.Last(); ch != nil {
				return ch
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatal("timed out waiting for dial")
		return nil
	}

	t.Run("exits when the watched upload finishes", func(t *testing.T) {
		f := newLoggedInFixture(t)

		done := make(chan error, 1)
		go func() { done <- f.runner.watch(context.Background(), watchOpts{until: 3}) }()

		ch := waitForDial(t, f.dialer)
		if ch.Params.Token != "tok-1" {
			t.Errorf("expected saved token on the channel, got %q", ch.Params.Token)
		}
		ch.Open()
		ch.Send(`{"upload_id":3,"status":"generating","type":"status_update"}`)
		ch.Send(`{"upload_id":3,"status":"done","type":"status_update"}`)

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("expected clean exit, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("watch did not exit")
		}

		out := f.output.String()
		for _, want := range []string{"upload #3 generating", "upload #3 done", "Upload #3 completed"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
		if !ch.Closed() {
			t.Error("expected the channel to be closed on exit")
		}
	})

	t.Run("upload with watch starts generation and follows it", func(t *testing.T) {
		f := newLoggedInFixture(t)
		path := filepath.Join(t.TempDir(), "notes.pdf")
		if err := os.WriteFile(path, []byte("%PDF-1.4"), 0644); err != nil {
			t.Fatal(err)
		}

		done := make(chan error, 1)
		go func() { done <- f.run("uploads", "upload", "--watch", path) }()

		ch := waitForDial(t, f.dialer)
		ch.Open()
		ch.Send(`{"upload_id":3,"status":"generating","type":"status_update"}`)
		ch.Send(`{"upload_id":3,"status":"done","type":"status_update"}`)

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("expected clean exit, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("watch did not exit")
		}

		out := f.output.String()
		for _, want := range []string{"Uploaded notes.pdf as #3", "upload #3 done", "Upload #3 completed"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("finished generation ends the watch without a status event", func(t *testing.T) {
		orig := generateGrace
		generateGrace = 10 * time.Millisecond
		t.Cleanup(func() { generateGrace = orig })

		f := newLoggedInFixture(t)

		done := make(chan error, 1)
		go func() { done <- f.run("uploads", "generate", "3", "--watch") }()

		waitForDial(t, f.dialer).Open()

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("expected clean exit, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("watch did not exit after generation finished")
		}
		if !strings.Contains(f.output.String(), "Generated 2 flashcards for #3") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("generation failure ends the watch", func(t *testing.T) {
		f := newLoggedInFixture(t)

		done := make(chan error, 1)
		go func() { done <- f.run("uploads", "generate", "99", "--watch") }()

		select {
		case err := <-done:
			if !errors.Is(err, shared.ErrUploadNotFound) {
				t.Errorf("expected ErrUploadNotFound, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("watch did not exit after generation failed")
		}
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		f := newLoggedInFixture(t)
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() { done <- f.runner.watch(ctx, watchOpts{}) }()

		ch := waitForDial(t, f.dialer)
		ch.Open()
		cancel()

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("expected clean exit, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("watch did not exit")
		}
		if !ch.Closed() {
			t.Error("expected the channel to be closed")
		}
	})

	t.Run("refuses without login", func(t *testing.T) {
		f := newFixture(t)

		err := f.runner.watch(context.Background(), watchOpts{})
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if f.dialer.Count() != 0 {
			t.Error("expected no dial")
		}
	})
}
