package model

import (
	"time"
)

// Setting is a single persisted panel preference.
type Setting struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
}

// Revision is the content a config file had before it was overwritten or deleted.
type Revision struct {
	ID        uint   `gorm:"primaryKey"`
	Core      string `gorm:"index:idx_revision_file"`
	Filename  string `gorm:"index:idx_revision_file"`
	Action    string // save, delete
	Content   string
	CreatedAt time.Time
}
