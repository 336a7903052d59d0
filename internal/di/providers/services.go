package providers

import (
	"github.com/samber/do/v2"

	"github.com/circulateapp/circulate-server/internal/config"
	"github.com/circulateapp/circulate-server/internal/logger"
	"github.com/circulateapp/circulate-server/internal/policy"
	"github.com/circulateapp/circulate-server/internal/service"
	"github.com/circulateapp/circulate-server/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideLendingRules provides the circulation policy derived from config.
func ProvideLendingRules(i do.Injector) (policy.Rules, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return policy.FromConfig(cfg.Lending), nil
}

// ProvideCatalogService provides the catalog service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCatalogService(storeHandle.Store, indexHandle.Index, v, log.Logger), nil
}

// ProvideDirectoryService provides the student and issuer directory service.
func ProvideDirectoryService(i do.Injector) (*service.DirectoryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewDirectoryService(storeHandle.Store, v, log.Logger), nil
}

// ProvideLedgerService provides the lending ledger service.
func ProvideLedgerService(i do.Injector) (*service.LedgerService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	directory := do.MustInvoke[*service.DirectoryService](i)
	rules := do.MustInvoke[policy.Rules](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewLedgerService(storeHandle.Store, directory, rules, v, log.Logger), nil
}

// ProvideReportingService provides the reporting service.
func ProvideReportingService(i do.Injector) (*service.ReportingService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	ledger := do.MustInvoke[*service.LedgerService](i)
	rules := do.MustInvoke[policy.Rules](i)

	return service.NewReportingService(storeHandle.Store, ledger, rules), nil
}
