package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/beatcrate/backend/internal/models"
)

const (
	// CooldownWindow is how long a track stays blocked after a download
	CooldownWindow = 24 * time.Hour

	// BatchLimit caps the number of track IDs in one batch eligibility check
	BatchLimit = 50
)

var (
	ErrInvalidID     = errors.New("track id must be positive")
	ErrTooManyTracks = fmt.Errorf("batch limited to %d tracks", BatchLimit)
)

// CooldownError signals that a repeat download was refused because the
// per-track window has not elapsed.
type CooldownError struct {
	NextAllowedAt time.Time
}

func (e *CooldownError) Error() string {
	return "track is in cooldown until " + e.NextAllowedAt.Format(time.RFC3339)
}

// Eligibility is the answer to "can this user download this track right now"
type Eligibility struct {
	TrackID             uint       `json:"track_id"`
	CanDownload         bool       `json:"can_download"`
	HasDownloadedBefore bool       `json:"has_downloaded_before"`
	NextAllowedAt       *time.Time `json:"next_allowed_download,omitempty"`
}

// DownloadStore is the persistence surface the guard needs. The GORM
// implementation below is the production one; tests supply an in-memory fake.
type DownloadStore interface {
	// Latest returns the download row for (userID, trackID), or nil when
	// the user never downloaded the track.
	Latest(ctx context.Context, userID, trackID uint) (*models.Download, error)

	// LatestBatch returns the download rows for the given track IDs,
	// keyed by track ID. Tracks never downloaded are absent from the map.
	LatestBatch(ctx context.Context, userID uint, trackIDs []uint) (map[uint]*models.Download, error)

	// UpsertIfAllowed atomically records a download at the given instant.
	// When a row exists and its cooldown has not elapsed, it returns a
	// *CooldownError and leaves the row untouched, unless override is set.
	// The bool reports whether this was the user's first download of the
	// track; re-downloads rewrite the existing row and report false.
	UpsertIfAllowed(ctx context.Context, userID, trackID uint, at, nextAllowed time.Time, override bool) (*models.Download, bool, error)
}

// DownloadGuard enforces the per-track repeat-download cooldown. The clock
// is injected so tests can pin time.
type DownloadGuard struct {
	store DownloadStore
	now   func() time.Time
}

func NewDownloadGuard(store DownloadStore) *DownloadGuard {
	return &DownloadGuard{store: store, now: time.Now}
}

// CheckEligibility answers the pre-download confirmation query. Read-only:
// nothing is recorded.
func (g *DownloadGuard) CheckEligibility(ctx context.Context, userID, trackID uint) (Eligibility, error) {
	if trackID == 0 {
		return Eligibility{}, ErrInvalidID
	}
	row, err := g.store.Latest(ctx, userID, trackID)
	if err != nil {
		return Eligibility{}, err
	}
	return g.eligibilityFrom(trackID, row), nil
}

// CheckBatch answers eligibility for up to BatchLimit tracks in one query,
// used by list views to badge re-downloads. A store failure degrades to
// "all eligible" so a read replica hiccup cannot blank out download buttons;
// the recording path still enforces the cooldown.
func (g *DownloadGuard) CheckBatch(ctx context.Context, userID uint, trackIDs []uint) ([]Eligibility, error) {
	if len(trackIDs) > BatchLimit {
		return nil, ErrTooManyTracks
	}
	for _, id := range trackIDs {
		if id == 0 {
			return nil, ErrInvalidID
		}
	}

	rows, err := g.store.LatestBatch(ctx, userID, trackIDs)
	if err != nil {
		log.Printf("Download guard: batch lookup failed, treating as eligible: %v", err)
		rows = nil
	}

	results := make([]Eligibility, 0, len(trackIDs))
	for _, id := range trackIDs {
		results = append(results, g.eligibilityFrom(id, rows[id]))
	}
	return results, nil
}

// RecordDownload registers a download and starts a fresh cooldown window.
// The check and the write are one atomic statement, so two concurrent
// requests for the same (user, track) cannot both succeed inside a window.
// override skips the cooldown check but still rewrites the row. The bool
// reports a first-time download; only those consume daily quota.
func (g *DownloadGuard) RecordDownload(ctx context.Context, userID, trackID uint, override bool) (*models.Download, bool, error) {
	if trackID == 0 {
		return nil, false, ErrInvalidID
	}
	now := g.now()
	return g.store.UpsertIfAllowed(ctx, userID, trackID, now, now.Add(CooldownWindow), override)
}

func (g *DownloadGuard) eligibilityFrom(trackID uint, row *models.Download) Eligibility {
	if row == nil {
		return Eligibility{TrackID: trackID, CanDownload: true}
	}
	if g.now().Before(row.NextAllowedAt) {
		next := row.NextAllowedAt
		return Eligibility{
			TrackID:             trackID,
			CanDownload:         false,
			HasDownloadedBefore: true,
			NextAllowedAt:       &next,
		}
	}
	return Eligibility{TrackID: trackID, CanDownload: true, HasDownloadedBefore: true}
}

// gormDownloadStore is the PostgreSQL-backed DownloadStore
type gormDownloadStore struct {
	db *gorm.DB
}

func NewDownloadStore(db *gorm.DB) DownloadStore {
	return &gormDownloadStore{db: db}
}

func (s *gormDownloadStore) Latest(ctx context.Context, userID, trackID uint) (*models.Download, error) {
	var row models.Download
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND track_id = ?", userID, trackID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *gormDownloadStore) LatestBatch(ctx context.Context, userID uint, trackIDs []uint) (map[uint]*models.Download, error) {
	if len(trackIDs) == 0 {
		return map[uint]*models.Download{}, nil
	}
	var rows []models.Download
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND track_id IN ?", userID, trackIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]*models.Download, len(rows))
	for i := range rows {
		out[rows[i].TrackID] = &rows[i]
	}
	return out, nil
}

// UpsertIfAllowed leans on the (user_id, track_id) unique key: the cooldown
// check rides in the conflict clause's WHERE, so check and write are a
// single statement and the race between two concurrent requests resolves
// inside PostgreSQL. xmax = 0 distinguishes a fresh insert from a conflict
// update, which is how the first-download signal survives the single
// round trip.
func (s *gormDownloadStore) UpsertIfAllowed(ctx context.Context, userID, trackID uint, at, nextAllowed time.Time, override bool) (*models.Download, bool, error) {
	var row struct {
		models.Download
		FirstTime bool `gorm:"column:first_time"`
	}
	res := s.db.WithContext(ctx).Raw(`
		INSERT INTO downloads (user_id, track_id, downloaded_at, next_allowed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, track_id) DO UPDATE
		SET downloaded_at = EXCLUDED.downloaded_at,
		    next_allowed_at = EXCLUDED.next_allowed_at,
		    updated_at = EXCLUDED.updated_at
		WHERE downloads.next_allowed_at <= EXCLUDED.downloaded_at OR ?
		RETURNING *, (xmax = 0) AS first_time`,
		userID, trackID, at, nextAllowed, at, at, override,
	).Scan(&row)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		// Conflict row still inside its window: surface when it unblocks
		existing, err := s.Latest(ctx, userID, trackID)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, errors.New("download row vanished during upsert")
		}
		return nil, false, &CooldownError{NextAllowedAt: existing.NextAllowedAt}
	}
	return &row.Download, row.FirstTime, nil
}
