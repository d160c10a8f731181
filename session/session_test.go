package session

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/gmapreviews/config"
	"github.com/use-agent/gmapreviews/models"
)

func sessionCfg(mode config.Mode, maxReviews int) config.SessionConfig {
	return config.SessionConfig{
		PlaceURL:   "https://maps.example.com/place/1",
		MaxReviews: maxReviews,
		Mode:       mode,
	}
}

// zero timeouts: no settle sleeps, unbounded waits on the fake page
var noWait = config.TimeoutConfig{}

func csvRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestAuto_StopsAfterThreeUnchangedHeights(t *testing.T) {
	page := newFakePage(t,
		[]string{placePage(0, 1, placeOpts{})},
		[]int{0, 100, 200, 300, 400}, // grows for 4 scrolls, then stays at 400
	)
	out := newSpySink(t)

	res, err := New(page, out, sessionCfg(config.ModeAuto, 1000), noWait).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 7, res.Iterations)
	assert.Equal(t, StopEndOfList, res.StopReason)
	assert.Equal(t, 7, page.regionScrolls)
	assert.Zero(t, page.pageScrolls)
	assert.True(t, page.closed)
}

func TestAuto_IterationCap(t *testing.T) {
	heights := make([]int, 200)
	for i := range heights {
		heights[i] = i * 10
	}
	page := newFakePage(t, []string{placePage(0, 1, placeOpts{})}, heights)

	res, err := New(page, newSpySink(t), sessionCfg(config.ModeAuto, 1000), noWait).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, autoMaxIterations, res.Iterations)
	assert.Equal(t, StopIterations, res.StopReason)
}

func TestAuto_MaxReviewsCap(t *testing.T) {
	// every pass shows ten reviews never seen before
	var snaps []string
	var heights []int
	for i := 0; i < 10; i++ {
		snaps = append(snaps, placePage(i*10, i*10+10, placeOpts{}))
		heights = append(heights, i*100)
	}
	page := newFakePage(t, snaps, heights)
	out := newSpySink(t)

	res, err := New(page, out, sessionCfg(config.ModeAuto, 5), noWait).Run(context.Background())

	require.NoError(t, err)
	assert.Len(t, res.Reviews, 5)
	assert.Equal(t, []int{5}, out.sizes)
	assert.Equal(t, StopMaxReviews, res.StopReason)

	rows := csvRows(t, out.Path())
	assert.Len(t, rows, 6)
	assert.Equal(t, models.CSVHeader, rows[0])
}

func TestAuto_MaxReviewsAcrossBatches(t *testing.T) {
	page := newFakePage(t,
		[]string{placePage(0, 3, placeOpts{}), placePage(0, 6, placeOpts{})},
		[]int{100, 200},
	)
	out := newSpySink(t)

	res, err := New(page, out, sessionCfg(config.ModeAuto, 4), noWait).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, out.sizes)
	require.Len(t, res.Reviews, 4)
	assert.Equal(t, "user-3", res.Reviews[3].AuthorName)
}

func TestAuto_EndToEnd(t *testing.T) {
	page := newFakePage(t,
		[]string{
			placePage(0, 2, placeOpts{}),
			placePage(0, 4, placeOpts{}),
			placePage(0, 6, placeOpts{}),
		},
		[]int{100, 200, 300},
	)
	out := newSpySink(t)

	res, err := New(page, out, sessionCfg(config.ModeAuto, 1000), noWait).Run(context.Background())

	require.NoError(t, err)
	assert.True(t, res.PanelOpened)
	assert.True(t, res.RegionFound)
	assert.Equal(t, []string{`button[jsaction*="pane.reviewChart.moreReviews"]`}, page.clicked)
	assert.Equal(t, []int{2, 2, 2}, out.sizes)
	require.Len(t, res.Reviews, 6)
	for i, r := range res.Reviews {
		assert.Equal(t, "user-"+string(rune('0'+i)), r.AuthorName)
	}

	rows := csvRows(t, out.Path())
	require.Len(t, rows, 7)
	assert.Equal(t, models.CSVHeader, rows[0])
	assert.Equal(t, []string{"user-0", "1.0", "0 days ago", "text 0", ""}, rows[1])
	assert.Equal(t, out.Path(), res.OutputPath)
}

func TestRun_PageLoadFailure(t *testing.T) {
	page := newFakePage(t, []string{placePage(0, 2, placeOpts{noMain: true})}, nil)
	out := newSpySink(t)

	res, err := New(page, out, sessionCfg(config.ModeAuto, 10), noWait).Run(context.Background())

	assert.Nil(t, res)
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodePageLoad, se.Code)
	assert.True(t, page.closed)
	assert.NoFileExists(t, out.Path())
}

func TestRun_NavigationFailure(t *testing.T) {
	page := newFakePage(t, []string{placePage(0, 2, placeOpts{})}, nil)
	page.navErr = models.NewScrapeError(models.ErrCodeNavigation, "navigation to place URL failed", errors.New("net::ERR_NAME_NOT_RESOLVED"))

	_, err := New(page, newSpySink(t), sessionCfg(config.ModeAuto, 10), noWait).Run(context.Background())

	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeNavigation, se.Code)
	assert.True(t, page.closed)
}

func TestRun_NoPanelScrollsWholePage(t *testing.T) {
	page := newFakePage(t,
		[]string{placePage(0, 2, placeOpts{noPanel: true})},
		[]int{500},
	)

	res, err := New(page, newSpySink(t), sessionCfg(config.ModeAuto, 1000), noWait).Run(context.Background())

	require.NoError(t, err)
	assert.False(t, res.PanelOpened)
	assert.False(t, res.RegionFound)
	assert.Zero(t, page.regionScrolls)
	assert.Equal(t, 4, page.pageScrolls) // first scroll changes 0 -> 500
	assert.Len(t, res.Reviews, 2)
}

func TestRun_PanelWithoutRegionScrollsWholePage(t *testing.T) {
	page := newFakePage(t,
		[]string{placePage(0, 2, placeOpts{noRegion: true})},
		[]int{500},
	)

	res, err := New(page, newSpySink(t), sessionCfg(config.ModeAuto, 1000), noWait).Run(context.Background())

	require.NoError(t, err)
	assert.True(t, res.PanelOpened)
	assert.False(t, res.RegionFound)
	assert.Len(t, page.clicked, 1)
	assert.Zero(t, page.regionScrolls)
	assert.Equal(t, 4, page.pageScrolls)
	assert.Equal(t, StopEndOfList, res.StopReason)
	assert.Len(t, res.Reviews, 2)
}

func TestRun_SinkFailure(t *testing.T) {
	page := newFakePage(t,
		[]string{placePage(0, 2, placeOpts{}), placePage(0, 4, placeOpts{})},
		[]int{100, 200},
	)
	out := newSpySink(t)

	c := New(page, out, sessionCfg(config.ModeAuto, 1000), noWait)
	// fail the second append
	calls := 0
	failing := &failAfterSink{spySink: out, ok: 1, calls: &calls}
	c.sink = failing

	res, err := c.Run(context.Background())

	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeSinkWrite, se.Code)
	require.NotNil(t, res)
	assert.Equal(t, StopSinkFailed, res.StopReason)
	assert.Len(t, res.Reviews, 2, "only records the sink accepted are returned")
	assert.True(t, page.closed)
}

type failAfterSink struct {
	*spySink
	ok    int
	calls *int
}

func (s *failAfterSink) Append(reviews []models.Review) error {
	*s.calls++
	if *s.calls > s.ok {
		return errors.New("disk full")
	}
	return s.spySink.Append(reviews)
}

func TestRun_InterruptStopsCleanly(t *testing.T) {
	page := newFakePage(t, []string{placePage(0, 2, placeOpts{})}, []int{100, 200, 300})
	ctx, cancel := context.WithCancel(context.Background())
	out := newSpySink(t)
	// cancel as soon as the first batch is saved
	c := New(page, &cancelSink{spySink: out, cancel: cancel}, sessionCfg(config.ModeAuto, 1000), noWait)

	res, err := c.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, StopInterrupted, res.StopReason)
	assert.Len(t, res.Reviews, 2)
	assert.Len(t, csvRows(t, out.Path()), 3)
}

type cancelSink struct {
	*spySink
	cancel context.CancelFunc
}

func (s *cancelSink) Append(reviews []models.Review) error {
	defer s.cancel()
	return s.spySink.Append(reviews)
}

func TestRun_InteractiveModeNeedsPrompter(t *testing.T) {
	page := newFakePage(t, []string{placePage(0, 2, placeOpts{})}, nil)

	_, err := New(page, newSpySink(t), sessionCfg(config.ModeManual, 10), noWait).Run(context.Background())

	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeInvalidInput, se.Code)
	assert.True(t, page.closed)
}

func TestRun_DedupIncludeText(t *testing.T) {
	// same author, date and rating; different text
	html := `<html><body><div role="main"><div class="m6QErb DxyBCb kA9KIf dS8AEf XiKgde">
		<div class="jftiEf fontBodyMedium"><div class="d4r55 fontTitleMedium">Ana</div><span class="rsqaWe">today</span><span class="wiI7pd">The coffee was excellent and the staff friendly</span></div>
		<div class="jftiEf fontBodyMedium"><div class="d4r55 fontTitleMedium">Ana</div><span class="rsqaWe">today</span><span class="wiI7pd">Parking is impossible around here on weekends</span></div>
	</div></div></body></html>`

	for _, tt := range []struct {
		includeText bool
		want        int
	}{{false, 1}, {true, 2}} {
		page := newFakePage(t, []string{html}, []int{100})
		cfg := sessionCfg(config.ModeAuto, 1000)
		cfg.DedupIncludeText = tt.includeText

		res, err := New(page, newSpySink(t), cfg, noWait).Run(context.Background())

		require.NoError(t, err)
		assert.Len(t, res.Reviews, tt.want, "includeText=%v", tt.includeText)
	}
}

func TestRun_SavesSnapshot(t *testing.T) {
	page := newFakePage(t, []string{placePage(0, 2, placeOpts{})}, []int{100})
	cfg := sessionCfg(config.ModeAuto, 1000)
	cfg.SnapshotPath = filepath.Join(t.TempDir(), "final.html")

	_, err := New(page, newSpySink(t), cfg, noWait).Run(context.Background())

	require.NoError(t, err)
	raw, err := os.ReadFile(cfg.SnapshotPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "user-1")
}
