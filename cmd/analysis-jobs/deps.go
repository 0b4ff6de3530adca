package main

import (
	"fmt"

	"github.com/patricesweeney/analysis-jobs/internal/config"
	"github.com/patricesweeney/analysis-jobs/internal/service"
	"github.com/patricesweeney/analysis-jobs/internal/store"
	"github.com/patricesweeney/analysis-jobs/pkg/objectstore"
)

func newObjectStore(cfg *config.Config) (*objectstore.MinioStore, error) {
	return objectstore.NewMinioStore(
		objectstore.WithEndpoint(cfg.Storage.Endpoint),
		objectstore.WithBucket(cfg.Storage.Bucket),
		objectstore.WithAccessKey(cfg.Storage.AccessKey),
		objectstore.WithSecretKey(cfg.Storage.SecretKey),
		objectstore.WithSSL(cfg.Storage.UseSSL),
	)
}

// newRunner opens the job store and the object store and builds the job
// runner on top of them.
func newRunner(cfg *config.Config) (*service.JobRunner, store.Store, error) {
	db, err := store.InitDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing data store: %w", err)
	}
	s := store.NewStore(db)

	if !cfg.UsesPostgres() {
		if err := s.InitialMigration(); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("running initial migration: %w", err)
		}
	}

	objects, err := newObjectStore(cfg)
	if err != nil {
		_ = s.Close()
		return nil, nil, fmt.Errorf("initializing object store: %w", err)
	}

	return service.NewJobRunner(s, objects), s, nil
}
