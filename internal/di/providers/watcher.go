package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/marginalia-app/marginalia-server/internal/config"
	"github.com/marginalia-app/marginalia-server/internal/logger"
	"github.com/marginalia-app/marginalia-server/internal/store"
	"github.com/marginalia-app/marginalia-server/internal/watcher"
)

// presenceHandler records missing-file transitions on document rows.
type presenceHandler struct {
	store store.Store
	log   *logger.Logger
}

// DocumentMissing implements watcher.Handler.
func (h *presenceHandler) DocumentMissing(path string) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := h.store.SetDocumentMissing(ctx, path, true); err != nil {
		h.log.Warn("failed to flag document as missing", "path", path, "error", err)
	}
}

// DocumentRestored implements watcher.Handler.
func (h *presenceHandler) DocumentRestored(path string) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := h.store.SetDocumentMissing(ctx, path, false); err != nil {
		h.log.Warn("failed to clear missing flag", "path", path, "error", err)
	}
}

// LibraryWatcherHandle wraps the library watcher with shutdown capability.
// When watching is disabled by configuration, Watcher is nil.
type LibraryWatcherHandle struct {
	*watcher.Watcher
}

// Shutdown implements do.Shutdownable.
func (h *LibraryWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	return h.Close()
}

// ProvideLibraryWatcher provides the document file watcher. Every document
// already in the library gets watched again on startup.
func ProvideLibraryWatcher(i do.Injector) (*LibraryWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	if !cfg.Watcher.Enabled {
		log.Info("Library watcher disabled by configuration")
		return &LibraryWatcherHandle{}, nil
	}

	w, err := watcher.New(&presenceHandler{store: storeHandle.Store, log: log}, cfg.Watcher.Debounce, log.Logger)
	if err != nil {
		return nil, err
	}
	w.Start()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	docs, err := storeHandle.ListDocuments(ctx)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	for _, doc := range docs {
		if err := w.Add(doc.Path); err != nil {
			log.Warn("cannot watch document", "path", doc.Path, "error", err)
		}
	}

	log.Info("Library watcher started", "documents", len(docs))

	return &LibraryWatcherHandle{Watcher: w}, nil
}
