// Package di provides dependency injection configuration for the Circulate server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/circulateapp/circulate-server/internal/config"
	"github.com/circulateapp/circulate-server/internal/di/providers"
	"github.com/circulateapp/circulate-server/internal/logger"
	"github.com/circulateapp/circulate-server/internal/policy"
	"github.com/circulateapp/circulate-server/internal/service"
	"github.com/circulateapp/circulate-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideLendingRules)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Business services
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideDirectoryService)
	do.Provide(injector, providers.ProvideLedgerService)
	do.Provide(injector, providers.ProvideReportingService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[policy.Rules](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)

	// Business services
	_ = do.MustInvoke[*service.CatalogService](injector)
	_ = do.MustInvoke[*service.DirectoryService](injector)
	_ = do.MustInvoke[*service.LedgerService](injector)
	_ = do.MustInvoke[*service.ReportingService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Rebuild the catalog index if it went missing
	providers.TriggerCatalogReindexIfNeeded(injector)

	return nil
}
