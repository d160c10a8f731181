package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/gmapreviews/config"
	"github.com/use-agent/gmapreviews/models"
)

func TestRunner_WritesToConfiguredFile(t *testing.T) {
	page := newFakePage(t, []string{placePage(0, 3, placeOpts{})}, []int{100})
	r := NewRunner(func() (Page, error) { return page, nil }, noWait)

	cfg := sessionCfg(config.ModeAuto, 1000)
	cfg.OutputDir = t.TempDir()
	cfg.OutputFilename = "cafe.csv"

	res, err := r.Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "cafe.csv"), res.OutputPath)
	assert.Len(t, csvRows(t, res.OutputPath), 4)
	assert.False(t, r.Busy())
}

func TestRunner_RejectsConcurrentSession(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	page := newFakePage(t, []string{placePage(0, 1, placeOpts{})}, []int{100})
	r := NewRunner(func() (Page, error) {
		close(entered)
		<-release
		return page, nil
	}, noWait)

	cfg := sessionCfg(config.ModeAuto, 1000)
	cfg.OutputDir = t.TempDir()
	cfg.OutputFilename = "reviews.csv"

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), cfg)
		done <- err
	}()
	<-entered
	assert.True(t, r.Busy())

	_, err := r.Run(context.Background(), cfg)
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeSessionBusy, se.Code)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, r.Busy())
}

func TestRunner_OpenFailure(t *testing.T) {
	boom := errors.New("no browser")
	r := NewRunner(func() (Page, error) { return nil, boom }, noWait)

	_, err := r.Run(context.Background(), sessionCfg(config.ModeAuto, 10))

	assert.ErrorIs(t, err, boom)
	assert.False(t, r.Busy())
}
