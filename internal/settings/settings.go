package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"xkeenui/internal/logger"
	"xkeenui/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	keyTimezoneOffset     = "timezone_offset"
	DefaultTimezoneOffset = 3
)

var ErrInvalidTimezone = errors.New("timezone offset must be between -12 and 14")

// Settings are the panel preferences exposed to the UI.
type Settings struct {
	TimezoneOffset int `json:"timezoneOffset"`
}

// Store keeps settings in the database and serves reads from memory.
type Store struct {
	db *gorm.DB

	mu       sync.RWMutex
	current  Settings
	onChange []func(Settings)
}

// NewStore loads persisted settings, falling back to defaults for missing keys.
func NewStore(ctx context.Context, db *gorm.DB) (*Store, error) {
	s := &Store{db: db, current: Settings{TimezoneOffset: DefaultTimezoneOffset}}

	var rows []model.Setting
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	for _, row := range rows {
		if row.Key != keyTimezoneOffset {
			continue
		}
		if v, err := strconv.Atoi(row.Value); err == nil && validOffset(v) {
			s.current.TimezoneOffset = v
		} else {
			logger.Log.Warnf("Ignoring stored timezone offset %q", row.Value)
		}
	}
	logger.Log.Infof("Loaded timezone offset: %d", s.current.TimezoneOffset)
	return s, nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// TimezoneOffset is the hour shift applied to log timestamps.
func (s *Store) TimezoneOffset() int {
	return s.Get().TimezoneOffset
}

// OnChange registers fn to run after every successful update.
func (s *Store) OnChange(fn func(Settings)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// SetTimezoneOffset validates and persists a new offset.
func (s *Store) SetTimezoneOffset(ctx context.Context, offset int) error {
	if !validOffset(offset) {
		return ErrInvalidTimezone
	}

	row := model.Setting{Key: keyTimezoneOffset, Value: strconv.Itoa(offset)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	s.mu.Lock()
	s.current.TimezoneOffset = offset
	current := s.current
	hooks := append([]func(Settings){}, s.onChange...)
	s.mu.Unlock()

	logger.Log.Infof("Saved timezone offset: %d", offset)
	for _, fn := range hooks {
		fn(current)
	}
	return nil
}

func validOffset(offset int) bool {
	return offset >= -12 && offset <= 14
}
