package cli

import (
	"context"
	"time"

	"simplebudget/internal/amqp"
	"simplebudget/internal/api"
	"simplebudget/internal/backend"
	"simplebudget/internal/config"
	"simplebudget/internal/core"
	"simplebudget/internal/events"
	"simplebudget/internal/identity"
	"simplebudget/internal/log"
	"simplebudget/internal/metrics"
	"simplebudget/internal/session"
	"simplebudget/internal/sheets"
	"simplebudget/internal/sheets/google"
	"simplebudget/internal/templates"
)

// App is everything a command needs, built from one Config.
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Metrics   *metrics.Metrics
	Identity  identity.Provider
	API       *api.Client
	Session   *session.Store
	Templates *templates.Service
	Events    events.Sink
	Now       func() time.Time

	cleanups []func() error
}

// Option adjusts how NewApp wires the App.
type Option func(*App)

// WithClock replaces time.Now for the session, templates and command defaults.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		if now != nil {
			a.Now = now
		}
	}
}

// NewIdentityProvider picks the OAuth token file when configured, else the
// static access token.
func NewIdentityProvider(cfg *config.Config, logger *log.Logger) identity.Provider {
	if cfg.OAuthTokenFile != "" {
		return identity.NewTokenFile(identity.OAuthConfig{
			TokenFile:    cfg.OAuthTokenFile,
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			AuthURL:      cfg.OAuthAuthURL,
			TokenURL:     cfg.OAuthTokenURL,
			UserID:       cfg.IdentityID,
			UserEmail:    cfg.IdentityEmail,
		}, logger)
	}
	return identity.NewStatic(cfg.AccessToken, cfg.IdentityID, cfg.IdentityEmail, logger)
}

// NewEventSink returns the AMQP publisher when AMQP_URL is set, else a no-op.
func NewEventSink(cfg *config.Config, logger *log.Logger) (events.Sink, func() error) {
	if !cfg.HasAMQP() {
		return events.Nop{}, nil
	}
	client := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, logger)
	return client, client.Close
}

// NewMonthWriter connects to the configured spreadsheet.
func NewMonthWriter(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.MonthWriter, error) {
	return google.New(ctx, google.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	}, logger)
}

// NewApp wires the preference backend, identity, API client, event sink,
// session store and template service. Close releases what it opened.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger, m *metrics.Metrics, opts ...Option) (*App, error) {
	app := &App{Config: cfg, Logger: logger, Metrics: m, Now: time.Now}
	for _, opt := range opts {
		opt(app)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	prefs, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}
	app.cleanups = append(app.cleanups, prefs.Close)

	app.Identity = NewIdentityProvider(cfg, logger)
	app.API = api.NewClient(cfg.APIBaseURL, app.Identity,
		api.WithTimeout(cfg.APITimeout),
		api.WithTransport(m.InstrumentTransport(nil)),
		api.WithLogger(logger))

	sink, closeSink := NewEventSink(cfg, logger)
	app.Events = sink
	if closeSink != nil {
		app.cleanups = append(app.cleanups, closeSink)
	}

	app.Session = session.New(session.Config{
		API:           app.API,
		Preferences:   prefs.Backend,
		Events:        sink,
		Logger:        logger,
		Metrics:       m,
		Now:           app.Now,
		InviteBaseURL: cfg.InviteBaseURL,
	})

	app.Templates, err = templates.NewService(prefs.Backend, logger, app.Now)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

// SignIn logs in through the identity provider; the session bootstraps
// from the change notification.
func (a *App) SignIn(ctx context.Context) error {
	a.Identity.OnChange(func(who *core.Identity) {
		if err := a.Session.Bootstrap(ctx, who); err != nil {
			a.Logger.WarnContext(ctx, "Bootstrap failed", log.FieldError, err)
		}
	})
	_, err := a.Identity.Login(ctx)
	return err
}

// Close runs cleanups in reverse order and returns the first error.
func (a *App) Close() error {
	var first error
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		if err := a.cleanups[i](); err != nil && first == nil {
			first = err
		}
	}
	a.cleanups = nil
	return first
}
