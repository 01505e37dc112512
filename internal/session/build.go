package session

import (
	"context"
	"fmt"

	"github.com/san-kum/tilewall/internal/catalog"
	"github.com/san-kum/tilewall/internal/config"
	"github.com/san-kum/tilewall/internal/loader"
	"github.com/san-kum/tilewall/internal/log"
)

// Source picks the image source the configuration asks for.
func Source(cfg *config.Config) loader.Source {
	if cfg.Loader.Offline {
		return loader.NewSynthetic(96, cfg.Loader.FailIDs...)
	}
	return loader.NewFetcher(cfg.Loader.Timeout, cfg.Loader.UserAgent)
}

// Build wires a session to the configured catalog and an asynchronous
// loader. The caller drains loader.Results on its event loop and closes the
// loader when done.
func Build(ctx context.Context, cfg *config.Config, logger *log.Logger, r Renderer) (*Session, *loader.Async, error) {
	cat, err := catalog.NewTemplate(cfg.Catalog.URLTemplate, cfg.Catalog.Total)
	if err != nil {
		return nil, nil, err
	}
	async := loader.NewAsync(ctx, Source(cfg), cfg.Loader.Workers, logger)
	s, err := New(cfg, Deps{
		Catalog:  cat,
		Loader:   async,
		Renderer: r,
		Log:      logger,
	})
	if err != nil {
		async.Close()
		return nil, nil, fmt.Errorf("new session: %w", err)
	}
	return s, async, nil
}
