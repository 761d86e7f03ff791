package app

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/talkincode/adboard/internal/domain"
	"github.com/talkincode/adboard/internal/media"
)

const (
	// AdImageDir is the media directory ad images are stored under
	AdImageDir        = "ads"
	orphanMediaMinAge = time.Hour
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	_, err = a.sched.AddFunc("@daily", a.SchedPurgeOrphanMedia)
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}

// SchedPurgeOrphanMedia removes images left behind by deleted or re-imaged ads
func (a *Application) SchedPurgeOrphanMedia() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	removed, err := a.PurgeOrphanMedia(ctx)
	if err != nil {
		zap.L().Error("orphan media purge failed", zap.String("namespace", "media"), zap.Error(err))
		return
	}
	zap.L().Info("orphan media purged", zap.String("namespace", "media"), zap.Int("removed", removed))
}

// PurgeOrphanMedia deletes stored ad images that no ad row refers to
func (a *Application) PurgeOrphanMedia(ctx context.Context) (int, error) {
	var keys []string
	if err := a.gormDB.WithContext(ctx).
		Model(&domain.Ad{}).
		Where("image <> ?", "").
		Pluck("image", &keys).Error; err != nil {
		return 0, errors.Wrap(err, "load referenced images")
	}
	return media.PurgeOrphans(ctx, a.media, AdImageDir, keys, orphanMediaMinAge)
}
