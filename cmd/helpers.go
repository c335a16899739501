package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/parcelworks/lvt-cli/internal/census"
	"github.com/parcelworks/lvt-cli/internal/fetcher"
	"github.com/parcelworks/lvt-cli/internal/join"
	"github.com/parcelworks/lvt-cli/internal/model"
	"github.com/parcelworks/lvt-cli/internal/parcel"
	"github.com/parcelworks/lvt-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "lvt.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		poolCfg := &store.PoolConfig{MaxConns: cfg.Store.MaxConns, MinConns: cfg.Store.MinConns}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, poolCfg)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Fetch.MaxRetries,
	})
}

func initCensusClient() *census.Client {
	var opts []census.ClientOption
	if cfg.Census.ACSBaseURL != "" {
		opts = append(opts, census.WithACSBaseURL(cfg.Census.ACSBaseURL))
	}
	if cfg.Census.TigerBaseURL != "" {
		opts = append(opts, census.WithTigerBaseURL(cfg.Census.TigerBaseURL))
	}
	return census.NewClient(initFetcher(), cfg.Census.APIKey, opts...)
}

func parcelFieldMap() parcel.FieldMap {
	return parcel.FieldMap{
		ParcelID:         cfg.Parcel.ParcelIDField,
		GeoID:            cfg.Parcel.GeoIDField,
		LandValue:        cfg.Parcel.LandValueField,
		ImprovementValue: cfg.Parcel.ImprovementValueField,
		CurrentTax:       cfg.Parcel.CurrentTaxField,
	}
}

// loadJoined loads both halves of a dataset from the store and joins them.
func loadJoined(ctx context.Context, st store.Store, dataset string, policy string) ([]model.JoinedParcelRecord, error) {
	parcels, err := st.LoadParcels(ctx, dataset)
	if err != nil {
		return nil, err
	}
	tracts, err := st.LoadTracts(ctx, dataset)
	if err != nil {
		return nil, err
	}

	if policy == "" {
		policy = cfg.Join.Policy
	}
	return join.Parcels(parcels, tracts, join.Options{
		Policy:     join.Policy(policy),
		GeoIDWidth: cfg.Join.GeoIDWidth,
	})
}
