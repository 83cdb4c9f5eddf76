package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// TrackStatus represents the publication status of a track
type TrackStatus int

const (
	TrackStatusPending   TrackStatus = 1
	TrackStatusPublished TrackStatus = 2
	TrackStatusRejected  TrackStatus = 3
)

// Track represents a track in the pool catalog
type Track struct {
	ID      uint   `gorm:"column:id;primaryKey" json:"id"`
	Title   string `gorm:"column:title;size:255;not null;index" json:"title"`
	Artist  string `gorm:"column:artist;size:255;not null;index" json:"artist"`
	MixName string `gorm:"column:mix_name;size:255" json:"mix_name"`
	Genre   string `gorm:"column:genre;size:100;index" json:"genre"`
	BPM     int    `gorm:"column:bpm;default:0" json:"bpm"`
	// Camelot notation, e.g. "8A"
	MusicalKey  string `gorm:"column:musical_key;size:10" json:"musical_key"`
	Label       string `gorm:"column:label;size:255" json:"label"`
	ReleaseYear int    `gorm:"column:release_year;default:0" json:"release_year"`

	// File
	StorageKey string `gorm:"column:storage_key;size:500;uniqueIndex;not null" json:"storage_key"`
	FileSize   int64  `gorm:"column:file_size;default:0" json:"file_size"`
	Duration   int    `gorm:"column:duration;default:0" json:"duration"` // seconds
	Bitrate    int    `gorm:"column:bitrate;default:0" json:"bitrate"`   // kbps

	// Gating
	Status      TrackStatus `gorm:"column:status;default:1;index" json:"status"`
	IsExclusive bool        `gorm:"column:is_exclusive;default:false" json:"is_exclusive"`

	// Provenance
	SubmittedBy *uint      `gorm:"column:submitted_by;index" json:"submitted_by"`
	Submitter   *User      `gorm:"-" json:"submitter,omitempty"`
	PublishedAt *time.Time `gorm:"column:published_at" json:"published_at"`

	DownloadCount int64 `gorm:"column:download_count;default:0" json:"download_count"`

	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Track) TableName() string {
	return "tracks"
}

// TrackSummary is the compact shape returned alongside download responses
type TrackSummary struct {
	ID      uint   `json:"id"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	MixName string `json:"mix_name,omitempty"`
	Genre   string `json:"genre"`
	BPM     int    `json:"bpm,omitempty"`
}

// DisplayFilename builds the name browsers save the file under, keeping
// the storage key's extension.
func (t *Track) DisplayFilename() string {
	ext := ""
	if i := strings.LastIndex(t.StorageKey, "."); i >= 0 {
		ext = t.StorageKey[i:]
	}
	name := t.Artist + " - " + t.Title
	if t.MixName != "" {
		name += " (" + t.MixName + ")"
	}
	return name + ext
}

// Summary returns the compact representation of a track
func (t *Track) Summary() TrackSummary {
	return TrackSummary{
		ID:      t.ID,
		Title:   t.Title,
		Artist:  t.Artist,
		MixName: t.MixName,
		Genre:   t.Genre,
		BPM:     t.BPM,
	}
}
