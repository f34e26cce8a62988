package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/store"
)

// TagIndex wraps a Bleve index of tags.
//
// All public methods are safe for concurrent use. The mutex only guards
// against operations racing a Rebuild.
type TagIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	fresh  bool
	mu     sync.RWMutex
}

var _ store.SearchIndexer = (*TagIndex)(nil)

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // uses a stderr text logger if nil
}

// mappingVersion is bumped whenever buildIndexMapping changes. A mismatch
// with the version file on disk drops the index and starts empty.
const mappingVersion = "1"

// reindexBatchSize bounds the documents held in memory per Bleve batch.
const reindexBatchSize = 500

// NewTagIndex opens the index under opts.DataPath, creating it when absent,
// corrupt or built with an older mapping.
func NewTagIndex(opts Options) (*TagIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	indexPath := filepath.Join(opts.DataPath, "tags.bleve")
	versionPath := filepath.Join(opts.DataPath, "tags.version")

	var index bleve.Index
	if _, err := os.Stat(indexPath); err == nil {
		version, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil:
			logger.Info("search index has no version file, rebuilding", "version", mappingVersion)
		case string(version) != mappingVersion:
			logger.Info("search index mapping changed, rebuilding",
				"old_version", string(version),
				"new_version", mappingVersion,
			)
		default:
			index, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open search index, recreating", "path", indexPath, "error", err)
				index = nil
			}
		}
		if index == nil {
			if err := os.RemoveAll(indexPath); err != nil {
				return nil, fmt.Errorf("remove old index: %w", err)
			}
		}
	}

	fresh := index == nil
	if fresh {
		var err error
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		logger.Info("created search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened search index", "path", indexPath)
	}

	return &TagIndex{index: index, path: indexPath, logger: logger, fresh: fresh}, nil
}

// Fresh reports whether the index was created empty by NewTagIndex and
// needs a Reindex from the store.
func (s *TagIndex) Fresh() bool {
	return s.fresh
}

// Close closes the index and releases resources.
func (s *TagIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexTag adds or replaces the document of t.
func (s *TagIndex) IndexTag(_ context.Context, t *domain.Tag) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := TagToDocument(t)
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexTags indexes tags in one batch.
func (s *TagIndex) IndexTags(tags []*domain.Tag) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := s.index.NewBatch()
	for _, t := range tags {
		doc := TagToDocument(t)
		if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
			return fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
	}
	return s.index.Batch(batch)
}

// DocumentCount returns the number of indexed tags.
func (s *TagIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// TagLister is the slice of store.Store that Reindex reads from.
type TagLister interface {
	ListTags(ctx context.Context, params store.PaginationParams) (*store.PaginatedResult[*domain.Tag], error)
}

// Reindex walks every stored tag and indexes it. It returns the number of
// tags indexed.
func (s *TagIndex) Reindex(ctx context.Context, src TagLister) (int, error) {
	params := store.PaginationParams{Limit: reindexBatchSize}
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		page, err := src.ListTags(ctx, params)
		if err != nil {
			return total, fmt.Errorf("list tags: %w", err)
		}
		if err := s.IndexTags(page.Items); err != nil {
			return total, err
		}
		total += len(page.Items)
		if !page.HasMore {
			break
		}
		params.Cursor = page.NextCursor
	}
	s.fresh = false
	s.logger.Info("reindexed tags", "count", total)
	return total, nil
}

// Rebuild drops the index and creates an empty one with the current
// mapping. It blocks every other operation until done.
func (s *TagIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}

	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index
	s.fresh = true
	s.logger.Info("rebuilt search index", "path", s.path)
	return nil
}
