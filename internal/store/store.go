package store

import (
	"gorm.io/gorm"

	"github.com/patricesweeney/analysis-jobs/internal/store/model"
)

type Store interface {
	Job() Job
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db  *gorm.DB
	job Job
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:  db,
		job: NewJobStore(db),
	}
}

func (s *DataStore) Job() Job {
	return s.job
}

// InitialMigration creates the schema from the models. It is used for sqlite;
// PostgreSQL deployments are migrated with the SQL migrations instead.
func (s *DataStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Job{})
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
