package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatcrate/backend/internal/models"
)

type fakeKey struct {
	userID  uint
	trackID uint
}

// fakeDownloadStore mirrors the conditional-upsert semantics of the
// database store in memory
type fakeDownloadStore struct {
	rows     map[fakeKey]*models.Download
	batchErr error
}

func newFakeStore() *fakeDownloadStore {
	return &fakeDownloadStore{rows: map[fakeKey]*models.Download{}}
}

func (s *fakeDownloadStore) Latest(_ context.Context, userID, trackID uint) (*models.Download, error) {
	row, ok := s.rows[fakeKey{userID, trackID}]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (s *fakeDownloadStore) LatestBatch(_ context.Context, userID uint, trackIDs []uint) (map[uint]*models.Download, error) {
	if s.batchErr != nil {
		return nil, s.batchErr
	}
	out := map[uint]*models.Download{}
	for _, id := range trackIDs {
		if row, ok := s.rows[fakeKey{userID, id}]; ok {
			copied := *row
			out[id] = &copied
		}
	}
	return out, nil
}

func (s *fakeDownloadStore) UpsertIfAllowed(_ context.Context, userID, trackID uint, at, nextAllowed time.Time, override bool) (*models.Download, bool, error) {
	key := fakeKey{userID, trackID}
	existing, existed := s.rows[key]
	if existed && at.Before(existing.NextAllowedAt) && !override {
		return nil, false, &CooldownError{NextAllowedAt: existing.NextAllowedAt}
	}
	row := &models.Download{
		UserID:        userID,
		TrackID:       trackID,
		DownloadedAt:  at,
		NextAllowedAt: nextAllowed,
	}
	s.rows[key] = row
	copied := *row
	return &copied, !existed, nil
}

func newTestGuard(store DownloadStore, now time.Time) (*DownloadGuard, *time.Time) {
	current := now
	g := NewDownloadGuard(store)
	g.now = func() time.Time { return current }
	return g, &current
}

func TestCheckEligibilityNeverDownloaded(t *testing.T) {
	store := newFakeStore()
	guard, _ := newTestGuard(store, time.Now())

	elig, err := guard.CheckEligibility(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.True(t, elig.CanDownload)
	assert.False(t, elig.HasDownloadedBefore)
	assert.Nil(t, elig.NextAllowedAt)
}

func TestCheckEligibilityInvalidID(t *testing.T) {
	guard, _ := newTestGuard(newFakeStore(), time.Now())

	_, err := guard.CheckEligibility(context.Background(), 1, 0)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestCooldownWindowEnforced(t *testing.T) {
	store := newFakeStore()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	guard, clock := newTestGuard(store, start)

	_, _, err := guard.RecordDownload(context.Background(), 1, 10, false)
	require.NoError(t, err)

	// Blocked immediately after
	elig, err := guard.CheckEligibility(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.False(t, elig.CanDownload)
	assert.True(t, elig.HasDownloadedBefore)
	require.NotNil(t, elig.NextAllowedAt)
	assert.Equal(t, start.Add(CooldownWindow), *elig.NextAllowedAt)

	// Still blocked one second before the window closes
	*clock = start.Add(CooldownWindow - time.Second)
	elig, err = guard.CheckEligibility(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.False(t, elig.CanDownload)

	// Eligible exactly at the boundary
	*clock = start.Add(CooldownWindow)
	elig, err = guard.CheckEligibility(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.True(t, elig.CanDownload)
	assert.True(t, elig.HasDownloadedBefore)
	assert.Nil(t, elig.NextAllowedAt)
}

func TestRecordDownloadBlockedWithoutOverride(t *testing.T) {
	store := newFakeStore()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	guard, clock := newTestGuard(store, start)

	_, _, err := guard.RecordDownload(context.Background(), 1, 10, false)
	require.NoError(t, err)

	*clock = start.Add(time.Hour)
	_, _, err = guard.RecordDownload(context.Background(), 1, 10, false)
	var cooldown *CooldownError
	require.ErrorAs(t, err, &cooldown)
	assert.Equal(t, start.Add(CooldownWindow), cooldown.NextAllowedAt)

	// The refused attempt must not have touched the stored row
	row, err := store.Latest(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, start, row.DownloadedAt)
}

func TestRecordDownloadOverrideResetsWindow(t *testing.T) {
	store := newFakeStore()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	guard, clock := newTestGuard(store, start)

	_, _, err := guard.RecordDownload(context.Background(), 1, 10, false)
	require.NoError(t, err)

	*clock = start.Add(time.Hour)
	row, _, err := guard.RecordDownload(context.Background(), 1, 10, true)
	require.NoError(t, err)
	assert.Equal(t, start.Add(time.Hour), row.DownloadedAt)
	assert.Equal(t, start.Add(time.Hour).Add(CooldownWindow), row.NextAllowedAt)
}

func TestRecordDownloadAfterWindowExpiry(t *testing.T) {
	store := newFakeStore()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	guard, clock := newTestGuard(store, start)

	_, _, err := guard.RecordDownload(context.Background(), 1, 10, false)
	require.NoError(t, err)

	*clock = start.Add(CooldownWindow + time.Second)
	row, _, err := guard.RecordDownload(context.Background(), 1, 10, false)
	require.NoError(t, err)
	assert.Equal(t, *clock, row.DownloadedAt)
}

func TestRecordDownloadFirstTimeSignal(t *testing.T) {
	store := newFakeStore()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	guard, clock := newTestGuard(store, start)

	_, firstTime, err := guard.RecordDownload(context.Background(), 1, 10, false)
	require.NoError(t, err)
	assert.True(t, firstTime)

	// A confirmed re-download inside the window is not a first download
	*clock = start.Add(time.Hour)
	_, firstTime, err = guard.RecordDownload(context.Background(), 1, 10, true)
	require.NoError(t, err)
	assert.False(t, firstTime)

	// Neither is a re-download after the window expired
	*clock = start.Add(2 * CooldownWindow)
	_, firstTime, err = guard.RecordDownload(context.Background(), 1, 10, false)
	require.NoError(t, err)
	assert.False(t, firstTime)

	// A different track starts fresh
	_, firstTime, err = guard.RecordDownload(context.Background(), 1, 11, false)
	require.NoError(t, err)
	assert.True(t, firstTime)
}

func TestDownloadsAreIndependentPerUserAndTrack(t *testing.T) {
	store := newFakeStore()
	guard, _ := newTestGuard(store, time.Now())

	_, _, err := guard.RecordDownload(context.Background(), 1, 10, false)
	require.NoError(t, err)

	// Other track, same user
	elig, err := guard.CheckEligibility(context.Background(), 1, 11)
	require.NoError(t, err)
	assert.True(t, elig.CanDownload)

	// Same track, other user
	elig, err = guard.CheckEligibility(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.True(t, elig.CanDownload)
}

func TestCheckBatchMatchesSingleChecks(t *testing.T) {
	store := newFakeStore()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	guard, _ := newTestGuard(store, start)

	_, _, err := guard.RecordDownload(context.Background(), 1, 10, false)
	require.NoError(t, err)

	results, err := guard.CheckBatch(context.Background(), 1, []uint{10, 11, 12})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, uint(10), results[0].TrackID)
	assert.False(t, results[0].CanDownload)
	assert.True(t, results[0].HasDownloadedBefore)

	for _, r := range results[1:] {
		assert.True(t, r.CanDownload)
		assert.False(t, r.HasDownloadedBefore)
	}
}

func TestCheckBatchCap(t *testing.T) {
	guard, _ := newTestGuard(newFakeStore(), time.Now())

	ids := make([]uint, BatchLimit+1)
	for i := range ids {
		ids[i] = uint(i + 1)
	}
	_, err := guard.CheckBatch(context.Background(), 1, ids)
	assert.ErrorIs(t, err, ErrTooManyTracks)

	results, err := guard.CheckBatch(context.Background(), 1, ids[:BatchLimit])
	require.NoError(t, err)
	assert.Len(t, results, BatchLimit)
}

func TestCheckBatchFailsOpenOnStoreError(t *testing.T) {
	store := newFakeStore()
	store.batchErr = errors.New("replica down")
	guard, _ := newTestGuard(store, time.Now())

	results, err := guard.CheckBatch(context.Background(), 1, []uint{10, 11})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.CanDownload)
	}
}
