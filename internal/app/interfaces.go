package app

import (
	"context"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/talkincode/adboard/config"
	"github.com/talkincode/adboard/internal/media"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// MediaProvider provides the uploaded image store
type MediaProvider interface {
	Media() media.Store
	MediaDir() string
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// AppContext combines all provider interfaces for full application context
// Handlers should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	MediaProvider
	SchedulerProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb() error
	DropAll() error
	// ImportFixtures loads the csv seed files found in dir
	ImportFixtures(ctx context.Context, dir string) (*ImportReport, error)
	// PurgeOrphanMedia removes stored images no ad refers to any more
	PurgeOrphanMedia(ctx context.Context) (int, error)
}
