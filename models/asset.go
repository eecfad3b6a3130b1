package models

import "time"

// Asset records an object written by the upload pipeline. Rows are created after the
// object is stored and resolved; deleting a content row does not delete its assets.
type Asset struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Key          string    `gorm:"size:512;uniqueIndex;not null" json:"key"`
	URL          string    `gorm:"size:1024;not null" json:"url"`
	Size         int64     `gorm:"not null" json:"size"`
	ContentType  string    `gorm:"size:128" json:"content_type"`
	Category     string    `gorm:"size:32;index" json:"category"`
	SourceFormat string    `gorm:"size:16" json:"source_format"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	UploadedBy   string    `gorm:"size:64;index" json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
}
