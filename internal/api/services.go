package api

import (
	"github.com/circulateapp/circulate-server/internal/service"
)

// Services groups the business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Catalog   *service.CatalogService
	Directory *service.DirectoryService
	Ledger    *service.LedgerService
	Reporting *service.ReportingService
}
