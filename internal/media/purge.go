package media

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// PurgeOrphans deletes objects under dir that are not in referenced and are
// older than minAge. The age guard keeps files written by in-flight uploads
// that have not been linked yet.
func PurgeOrphans(ctx context.Context, s Store, dir string, referenced []string, minAge time.Duration) (int, error) {
	keep := make(map[string]struct{}, len(referenced))
	for _, key := range referenced {
		keep[key] = struct{}{}
	}

	objects, err := s.List(ctx, dir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-minAge)
	removed := 0
	for _, obj := range objects {
		if _, ok := keep[obj.Key]; ok {
			continue
		}
		if obj.ModTime.After(cutoff) {
			continue
		}
		if err := s.Delete(ctx, obj.Key); err != nil {
			zap.L().Warn("failed to purge orphan media",
				zap.String("namespace", "media"),
				zap.String("key", obj.Key),
				zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}
