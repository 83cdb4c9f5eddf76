package models

import (
	"time"

	"gorm.io/gorm"
)

// Playlist represents a curated set of tracks
type Playlist struct {
	ID          uint   `gorm:"column:id;primaryKey" json:"id"`
	Name        string `gorm:"column:name;size:255;not null" json:"name"`
	Description string `gorm:"column:description;type:text" json:"description"`
	Genre       string `gorm:"column:genre;size:100;index" json:"genre"`
	CoverKey    string `gorm:"column:cover_key;size:500" json:"cover_key"`
	IsPublished bool   `gorm:"column:is_published;default:false;index" json:"is_published"`
	CreatedBy   uint   `gorm:"column:created_by" json:"created_by"`

	Tracks        []PlaylistTrack `gorm:"-" json:"tracks,omitempty"`
	TrackCount    int64           `gorm:"-" json:"track_count"`
	DownloadCount int64           `gorm:"column:download_count;default:0" json:"download_count"`

	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Playlist) TableName() string {
	return "playlists"
}

// PlaylistTrack links a track into a playlist with an ordering position
type PlaylistTrack struct {
	ID         uint      `gorm:"column:id;primaryKey" json:"id"`
	PlaylistID uint      `gorm:"column:playlist_id;uniqueIndex:idx_playlist_track;not null" json:"playlist_id"`
	TrackID    uint      `gorm:"column:track_id;uniqueIndex:idx_playlist_track;not null" json:"track_id"`
	Track      *Track    `gorm:"foreignKey:TrackID" json:"track,omitempty"`
	Position   int       `gorm:"column:position;default:0" json:"position"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

func (PlaylistTrack) TableName() string {
	return "playlist_tracks"
}
