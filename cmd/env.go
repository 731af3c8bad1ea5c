package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geothermal-cli/internal/dataset"
	"github.com/sells-group/geothermal-cli/internal/fetcher"
	"github.com/sells-group/geothermal-cli/internal/store"
)

// newLoader builds a dataset loader that downloads remote sources into the
// configured cache directory.
func newLoader() *dataset.Loader {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{UserAgent: cfg.Input.UserAgent})
	return dataset.NewLoader(fetcher.NewResolver(f, cfg.Input.CacheDir))
}

// openStore opens the configured run store. It returns nil when run history
// is disabled.
func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.Store)
}

// requireStore is openStore for commands that cannot work without history.
func requireStore(ctx context.Context) (store.Store, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("run history is disabled (store.driver is none)")
	}
	return st, nil
}
