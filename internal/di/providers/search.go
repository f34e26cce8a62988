package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/ethereum-tag-service/ets-server/internal/config"
	"github.com/ethereum-tag-service/ets-server/internal/logger"
	"github.com/ethereum-tag-service/ets-server/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.TagIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve tag index and wires it to the store
// so committed tags are indexed.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	index, err := search.NewTagIndex(search.Options{
		DataPath: cfg.Data.Path,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	storeHandle.SetSearchIndexer(index)

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount, "fresh", index.Fresh())

	return &SearchIndexHandle{TagIndex: index}, nil
}

// TriggerSearchReindexIfNeeded rebuilds the index from the store when it
// was created empty. Should be called after all services are wired.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !indexHandle.Fresh() {
		return
	}

	go func() {
		count, err := indexHandle.Reindex(context.Background(), storeHandle.Store)
		if err != nil {
			log.WithError(err).Error("Initial search reindex failed")
			return
		}
		if count > 0 {
			log.Info("Initial search reindex completed", "documents", count)
		}
	}()
}
