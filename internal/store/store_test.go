package store

import (
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/channelfit/internal/model"
	"github.com/banshee-data/channelfit/internal/timeutil"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_Migrates(t *testing.T) {
	db := openTestDB(t)
	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Running again is a no-op.
	require.NoError(t, db.MigrateUp())

	require.NoError(t, db.MigrateDown())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}

func TestRunStore_Lifecycle(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(start)
	s := NewRunStore(openTestDB(t)).WithClock(clock)

	cfg := json.RawMessage(`{"cubefits":"disk.fits"}`)
	id, err := s.Start("disk.fits", cfg, 22, 100, 200)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	run, err := s.Get(id)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, StatusRunning, run.Status)
	assert.JSONEq(t, string(cfg), string(run.Config))
	assert.Equal(t, 22, run.Walkers)
	assert.True(t, run.StartedAt.Equal(start))
	assert.Nil(t, run.CompletedAt)
	assert.Nil(t, run.Acceptance)

	var low, mid, high, opt model.Params
	for i, p := range []*model.Params{&low, &mid, &high, &opt} {
		p.Mstar = 0.9 + 0.1*float64(i)
		p.Rc = 100
		p.Incl = 1
	}
	est := Estimates([4]model.Params{low, mid, high, opt}, []string{model.NameMstar})
	require.Len(t, est, model.NumParams)
	assert.True(t, est[0].Free)
	assert.False(t, est[1].Free)

	clock.Advance(time.Minute)
	require.NoError(t, s.Complete(id, est, 0.31, -1234.5, "out.popt"))

	run, err = s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status)
	require.NotNil(t, run.Acceptance)
	assert.Equal(t, 0.31, *run.Acceptance)
	assert.Equal(t, "out.popt", run.TablePath)
	require.NotNil(t, run.CompletedAt)
	assert.Equal(t, time.Minute, run.CompletedAt.Sub(run.StartedAt))

	got, err := s.Params(id)
	require.NoError(t, err)
	if diff := cmp.Diff(est, got); diff != "" {
		t.Errorf("estimates mismatch (-want +got):\n%s", diff)
	}

	rows, err := s.Rows(id)
	require.NoError(t, err)
	assert.Equal(t, [4]model.Params{low, mid, high, opt}, rows)

	require.NoError(t, s.Delete(id))
	run, err = s.Get(id)
	require.NoError(t, err)
	assert.Nil(t, run)
	got, err = s.Params(id)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRunStore_FailAndList(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewRunStore(openTestDB(t)).WithClock(clock)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := s.Start("c.fits", nil, 4, 1, 1)
		require.NoError(t, err)
		ids = append(ids, id)
		clock.Advance(time.Hour)
	}
	require.NoError(t, s.Fail(ids[1], StatusCancelled, "context canceled"))

	runs, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].RunID)
	assert.Equal(t, StatusCancelled, runs[1].Status)
	assert.Equal(t, "context canceled", runs[1].Error)
	assert.Nil(t, runs[0].Config)

	runs, err = s.List(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunStore_Errors(t *testing.T) {
	s := NewRunStore(openTestDB(t))
	assert.Error(t, s.Complete("missing", nil, 0, 0, ""))

	id, err := s.Start("c.fits", nil, 4, 1, 1)
	require.NoError(t, err)
	_, err = s.Rows(id)
	assert.Error(t, err)

	require.NoError(t, s.Complete(id, nil, math.NaN(), math.Inf(-1), ""))
	run, err := s.Get(id)
	require.NoError(t, err)
	assert.Nil(t, run.Acceptance)
	assert.Nil(t, run.MaxLogProb)
}

func TestRetryOnBusy(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	calls := 0
	err := retryOnBusy(clock.Sleep, func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{busyBackoff, 2 * busyBackoff}, clock.Sleeps())

	calls = 0
	err = retryOnBusy(clock.Sleep, func() error {
		calls++
		return errors.New("constraint failed")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)

	assert.False(t, isSQLiteBusy(nil))
	assert.True(t, isSQLiteBusy(errors.New("SQLITE_BUSY")))
}
