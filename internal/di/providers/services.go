package providers

import (
	"github.com/samber/do/v2"

	"github.com/marginalia-app/marginalia-server/internal/config"
	"github.com/marginalia-app/marginalia-server/internal/logger"
	"github.com/marginalia-app/marginalia-server/internal/service"
)

// ProvideSuggestionService provides the tag ranking and autocomplete service.
func ProvideSuggestionService(i do.Injector) (*service.SuggestionService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return service.NewSuggestionService(storeHandle.Store, cfg.Suggestions.CacheTTL, log.Logger), nil
}

// ProvideAnnotationService provides the document and highlight service.
func ProvideAnnotationService(i do.Injector) (*service.AnnotationService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	watcherHandle := do.MustInvoke[*LibraryWatcherHandle](i)

	var libraryWatcher service.LibraryWatcher
	if watcherHandle.Watcher != nil {
		libraryWatcher = watcherHandle.Watcher
	}

	return service.NewAnnotationService(storeHandle.Store, libraryWatcher, log.Logger), nil
}
