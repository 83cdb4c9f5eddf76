package models

import (
	"time"
)

// Download represents the latest download of a track by a user. The
// (user_id, track_id) unique key gives upsert semantics: re-downloads
// overwrite the row and reset the cooldown window.
type Download struct {
	ID            uint      `gorm:"column:id;primaryKey" json:"id"`
	UserID        uint      `gorm:"column:user_id;uniqueIndex:idx_user_track;not null" json:"user_id"`
	TrackID       uint      `gorm:"column:track_id;uniqueIndex:idx_user_track;not null" json:"track_id"`
	Track         *Track    `gorm:"foreignKey:TrackID" json:"track,omitempty"`
	DownloadedAt  time.Time `gorm:"column:downloaded_at;not null;index" json:"downloaded_at"`
	NextAllowedAt time.Time `gorm:"column:next_allowed_at;not null" json:"next_allowed_at"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Download) TableName() string {
	return "downloads"
}

// PackRequestStatus represents the state of a pack request
type PackRequestStatus string

const (
	PackRequestStatusOpen      PackRequestStatus = "open"
	PackRequestStatusFulfilled PackRequestStatus = "fulfilled"
	PackRequestStatusDeclined  PackRequestStatus = "declined"
)

// PackRequest is a member request for a curated pack of tracks
type PackRequest struct {
	ID          uint              `gorm:"column:id;primaryKey" json:"id"`
	UserID      uint              `gorm:"column:user_id;not null;index" json:"user_id"`
	User        *User             `gorm:"-" json:"user,omitempty"`
	Genres      string            `gorm:"column:genres;size:255" json:"genres"`
	Notes       string            `gorm:"column:notes;type:text" json:"notes"`
	Status      PackRequestStatus `gorm:"column:status;size:20;default:open;index" json:"status"`
	FulfilledBy *uint             `gorm:"column:fulfilled_by" json:"fulfilled_by"`
	PlaylistID  *uint             `gorm:"column:playlist_id" json:"playlist_id"`
	CreatedAt   time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (PackRequest) TableName() string {
	return "pack_requests"
}

// PlaylistDownload records one playlist download against the weekly quota
type PlaylistDownload struct {
	ID         uint      `gorm:"column:id;primaryKey" json:"id"`
	UserID     uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	PlaylistID uint      `gorm:"column:playlist_id;not null;index" json:"playlist_id"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

func (PlaylistDownload) TableName() string {
	return "playlist_downloads"
}
