package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/formby-guide/guide-cli/internal/store"
	"github.com/formby-guide/guide-cli/pkg/fsa"
	"github.com/formby-guide/guide-cli/pkg/places"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "guide.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store database URL is required (GUIDE_STORE_DATABASE_URL)")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initPlaces() (places.Client, error) {
	if cfg.Google.Key == "" {
		return nil, eris.New("google places API key is required (GUIDE_GOOGLE_KEY)")
	}
	return places.NewClient(cfg.Google.Key,
		places.WithBaseURL(cfg.Google.BaseURL),
		places.WithMinInterval(time.Duration(cfg.Google.MinIntervalMS)*time.Millisecond),
	), nil
}

func initFSA() fsa.Client {
	return fsa.NewClient(
		fsa.WithBaseURL(cfg.FSA.BaseURL),
		fsa.WithMinInterval(time.Duration(cfg.FSA.MinIntervalMS)*time.Millisecond),
	)
}
