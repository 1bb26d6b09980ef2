package configs

import (
	"context"
	"fmt"

	"xkeenui/internal/logger"
	"xkeenui/internal/model"
)

func (s *Store) recordRevision(ctx context.Context, core, filename, action, content string) {
	if s.db == nil || s.keep == 0 {
		return
	}
	rev := model.Revision{Core: core, Filename: filename, Action: action, Content: content}
	if err := s.db.WithContext(ctx).Create(&rev).Error; err != nil {
		logger.Log.Warnf("Failed to record revision of %s: %v", filename, err)
		return
	}

	// Trim everything past the newest s.keep revisions of this file.
	var ids []uint
	err := s.db.WithContext(ctx).Model(&model.Revision{}).
		Where("core = ? AND filename = ?", core, filename).
		Order("id DESC").
		Pluck("id", &ids).Error
	if err != nil {
		logger.Log.Warnf("Failed to list old revisions of %s: %v", filename, err)
		return
	}
	if len(ids) > s.keep {
		if err := s.db.WithContext(ctx).Delete(&model.Revision{}, ids[s.keep:]).Error; err != nil {
			logger.Log.Warnf("Failed to prune old revisions of %s: %v", filename, err)
		}
	}
}

// Revisions returns the recorded history of a file, newest first.
func (s *Store) Revisions(ctx context.Context, core, filename string) ([]model.Revision, error) {
	if s.db == nil {
		return nil, nil
	}
	var revs []model.Revision
	err := s.db.WithContext(ctx).
		Where("core = ? AND filename = ?", core, filename).
		Order("id DESC").
		Find(&revs).Error
	if err != nil {
		return nil, fmt.Errorf("load revisions: %w", err)
	}
	return revs, nil
}
