package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/circulateapp/circulate-server/internal/config"
	"github.com/circulateapp/circulate-server/internal/logger"
	"github.com/circulateapp/circulate-server/internal/search"
	"github.com/circulateapp/circulate-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve catalog index and wires it to the
// store so catalog writes are indexed as they land.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	index, err := search.NewIndex(search.Options{
		DataPath: cfg.Store.DataPath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	storeHandle.SetSearchIndexer(index)

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{Index: index}, nil
}

// TriggerCatalogReindexIfNeeded rebuilds the search index when it is empty
// but the catalog is not. Should be called after all services are wired.
func TriggerCatalogReindexIfNeeded(i do.Injector) {
	catalog := do.MustInvoke[*service.CatalogService](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := indexHandle.DocumentCount()
	if docCount > 0 {
		return
	}

	ctx := context.Background()
	stats, err := storeHandle.Stats(ctx)
	if err != nil || stats.Titles == 0 {
		return
	}

	log.Info("Search index is empty but catalog has titles, triggering initial reindex",
		"titles", stats.Titles,
	)

	go func() {
		indexed, err := catalog.ReindexCatalog(context.Background())
		if err != nil {
			log.Error("Initial catalog reindex failed", "error", err)
			return
		}
		log.Info("Initial catalog reindex completed", "documents", indexed)
	}()
}
