package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/circulateapp/circulate-server/internal/api"
	"github.com/circulateapp/circulate-server/internal/config"
	"github.com/circulateapp/circulate-server/internal/logger"
	"github.com/circulateapp/circulate-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.api.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Catalog:   do.MustInvoke[*service.CatalogService](i),
		Directory: do.MustInvoke[*service.DirectoryService](i),
		Ledger:    do.MustInvoke[*service.LedgerService](i),
		Reporting: do.MustInvoke[*service.ReportingService](i),
	}

	handler := api.NewServer(storeHandle.Store, indexHandle.Index, services, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr, "name", cfg.Server.Name)

	return &HTTPServerHandle{Server: srv, api: handler}, nil
}
