package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/teemow/gmailer/internal/config"
	"github.com/teemow/gmailer/internal/gmail"
	"github.com/teemow/gmailer/internal/google"
	"github.com/teemow/gmailer/internal/instrumentation"
	"github.com/teemow/gmailer/internal/logging"
)

// app holds what the commands share after the root command ran setup.
type app struct {
	opts            rootOptions
	out             io.Writer
	logger          *slog.Logger
	provider        *instrumentation.Provider
	metricsTextfile string
}

func (a *app) log() *slog.Logger {
	return logging.OrDefault(a.logger)
}

func (a *app) metrics() *instrumentation.Metrics {
	if a.provider == nil {
		return nil
	}
	return a.provider.Metrics()
}

// configPath returns the --config path or the XDG default.
func (a *app) configPath() (string, error) {
	if a.opts.configPath != "" {
		return a.opts.configPath, nil
	}
	return config.DefaultPath()
}

func (a *app) fileStore() (*config.FileStore, error) {
	path, err := a.configPath()
	if err != nil {
		return nil, err
	}
	return config.NewFileStore(path), nil
}

func (a *app) tokenStore(ctx context.Context) (*google.TokenStore, error) {
	store, err := a.fileStore()
	if err != nil {
		return nil, err
	}
	return google.NewTokenStore(ctx, store,
		google.WithLogger(a.log()),
		google.WithMetrics(a.metrics()),
	)
}

func (a *app) gmailClient(ctx context.Context) (*gmail.Client, error) {
	tokens, err := a.tokenStore(ctx)
	if err != nil {
		return nil, err
	}
	if !tokens.Authorized() {
		return nil, &config.ConfigurationError{Field: "refreshToken", Reason: "not authorized; run `gmailer auth login`"}
	}
	return gmail.NewClient(ctx, tokens, gmail.Config{
		Endpoint:       os.Getenv(envAPIEndpoint),
		UploadEndpoint: os.Getenv(envUploadEndpoint),
		Logger:         a.log(),
		Metrics:        a.metrics(),
	})
}

// printJSON writes v to stdout as indented JSON.
func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// close writes the metrics textfile and shuts the provider down.
func (a *app) close(ctx context.Context) error {
	if a.provider == nil {
		return nil
	}
	return errors.Join(
		a.provider.WriteMetricsTextfile(a.metricsTextfile),
		a.provider.Shutdown(ctx),
	)
}
