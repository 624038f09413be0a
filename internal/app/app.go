// Package app wires configuration, storage and services into a runnable
// application.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/submitto/submitto/internal/common"
	"github.com/submitto/submitto/internal/interfaces"
	"github.com/submitto/submitto/internal/models"
	"github.com/submitto/submitto/internal/services/browser"
	"github.com/submitto/submitto/internal/services/captcha"
	"github.com/submitto/submitto/internal/services/jobs"
	"github.com/submitto/submitto/internal/services/scheduler"
	"github.com/submitto/submitto/internal/services/sitemap"
	"github.com/submitto/submitto/internal/services/submit"
	"github.com/submitto/submitto/internal/storage/badger"
)

// App holds all application components and dependencies.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager *badger.Manager

	CaptchaSolver  interfaces.CaptchaSolver
	SessionManager interfaces.SessionManager
	Registry       *submit.Registry

	JobService     *jobs.Service
	SitemapService *sitemap.Service
	Scheduler      *scheduler.Service
}

// New builds the application from configuration. No background work starts
// until Start is called.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	storageManager, err := badger.NewManager(&config.Storage.Badger, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:         config,
		Logger:         logger,
		StorageManager: storageManager,
	}

	if err := a.seed(context.Background()); err != nil {
		storageManager.Close()
		return nil, err
	}

	if err := a.wireServices(); err != nil {
		storageManager.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) wireServices() error {
	// Captcha solving is optional; browser logins degrade to
	// LoginRequiredError without it.
	if a.Config.Captcha.APIKey != "" || a.Config.Captcha.Endpoint != "" {
		solver, err := captcha.NewSolver(&a.Config.Captcha, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create captcha solver: %w", err)
		}
		a.CaptchaSolver = solver
	} else {
		a.Logger.Info().Msg("No captcha backend configured, browser logins will require manual help")
	}

	a.SessionManager = browser.NewManager(
		&a.Config.Browser,
		&a.Config.Providers,
		a.StorageManager.Accounts(),
		a.StorageManager.Cookies(),
		a.CaptchaSolver,
		a.Logger,
	)

	a.JobService = jobs.NewService(
		a.StorageManager.Jobs(),
		a.StorageManager.JobLogs(),
		a.StorageManager.Sites(),
		a.Logger,
	)

	a.SitemapService = sitemap.NewService(
		a.StorageManager.Sitemaps(),
		a.StorageManager.Sites(),
		a.StorageManager.Jobs(),
		a.JobService,
		&a.Config.Sitemap,
		a.Logger,
	)

	registry, err := a.buildRegistry()
	if err != nil {
		return err
	}
	a.Registry = registry

	a.Scheduler = scheduler.NewService(
		&a.Config.Scheduler,
		a.StorageManager.Jobs(),
		a.JobService,
		a.Registry,
		a.SitemapService,
		a.Logger,
	)

	return nil
}

// buildRegistry registers one submission strategy per enabled provider.
// A provider with broken configuration fails startup rather than silently
// dropping its jobs.
func (a *App) buildRegistry() (*submit.Registry, error) {
	registry := submit.NewRegistry(a.Logger)
	providers := &a.Config.Providers

	if providers.Google.Enabled {
		google, err := submit.NewGoogleSubmitter(&providers.Google, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("google strategy: %w", err)
		}
		registry.Register(google)
	}
	if providers.Bing.Enabled {
		bing, err := submit.NewBingSubmitter(&providers.Bing, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("bing strategy: %w", err)
		}
		registry.Register(bing)
	}
	if providers.Naver.Enabled {
		registry.Register(submit.NewNaverSubmitter(a.SessionManager, time.Duration(a.Config.Browser.SubmitTimeout), a.Logger))
	}
	if providers.Daum.Enabled {
		registry.Register(submit.NewDaumSubmitter(a.SessionManager, time.Duration(a.Config.Browser.SubmitTimeout), a.Logger))
	}

	if len(registry.Providers()) == 0 {
		a.Logger.Warn().Msg("No providers enabled, jobs will fail at dispatch")
	}
	return registry, nil
}

// seed materializes configured sites, sitemap configs and provider accounts
// into storage so services read one source of truth.
func (a *App) seed(ctx context.Context) error {
	now := time.Now()

	// Re-seeding must not lose parse history.
	lastParsed := map[string]*time.Time{}
	if existing, err := a.StorageManager.Sitemaps().ListEnabled(ctx); err == nil {
		for _, config := range existing {
			lastParsed[config.ID] = config.LastParsed
		}
	}

	for _, sc := range a.Config.Sites {
		providers := make([]models.Provider, 0, len(sc.Providers))
		for _, name := range sc.Providers {
			provider, err := models.ParseProvider(name)
			if err != nil {
				return fmt.Errorf("site %s: %w", sc.ID, err)
			}
			providers = append(providers, provider)
		}

		site := &models.Site{
			ID:        sc.ID,
			Name:      sc.Name,
			BaseURL:   sc.BaseURL,
			Providers: providers,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if existing, err := a.StorageManager.Sites().GetSite(ctx, sc.ID); err == nil {
			site.CreatedAt = existing.CreatedAt
		}
		if err := a.StorageManager.Sites().SaveSite(ctx, site); err != nil {
			return fmt.Errorf("failed to seed site %s: %w", sc.ID, err)
		}

		sitemaps := sc.Sitemaps
		if len(sitemaps) == 0 {
			sitemaps = []string{"sitemap.xml"}
		}
		for _, sitemapType := range sitemaps {
			config := &models.SitemapConfig{
				ID:          sc.ID + "|" + sitemapType,
				SiteID:      sc.ID,
				SitemapType: sitemapType,
				IsEnabled:   true,
				LastParsed:  lastParsed[sc.ID+"|"+sitemapType],
			}
			if err := a.StorageManager.Sitemaps().SaveConfig(ctx, config); err != nil {
				return fmt.Errorf("failed to seed sitemap config for %s: %w", sc.ID, err)
			}
		}
	}

	for _, provider := range []models.Provider{models.ProviderNaver, models.ProviderDaum} {
		console := a.Config.Providers.ConsoleFor(string(provider))
		if console == nil || !console.Enabled || console.LoginID == "" {
			continue
		}

		account := &models.ProviderAccount{
			ID:       uuid.NewSHA1(uuid.NameSpaceURL, []byte(string(provider)+"|"+console.LoginID)).String(),
			Provider: provider,
			LoginID:  console.LoginID,
			Secret:   console.Password,
			IsActive: true,
		}
		if existing, err := a.StorageManager.Accounts().GetActiveAccount(ctx, provider); err == nil {
			account.ID = existing.ID
			account.IsLoggedIn = existing.IsLoggedIn
			account.LastLogin = existing.LastLogin
		}
		if err := a.StorageManager.Accounts().SaveAccount(ctx, account); err != nil {
			return fmt.Errorf("failed to seed %s account: %w", provider, err)
		}
	}

	return nil
}

// Start recovers interrupted jobs and begins scheduling.
func (a *App) Start(ctx context.Context) error {
	if err := a.JobService.RecoverInterrupted(ctx); err != nil {
		return err
	}
	if err := a.Scheduler.Start(); err != nil {
		return err
	}
	a.Logger.Info().Str("environment", a.Config.Environment).Msg("Application started")
	return nil
}

// Stop shuts down the scheduler and closes storage.
func (a *App) Stop() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage cleanly")
		}
	}
	a.Logger.Info().Msg("Application stopped")
}
