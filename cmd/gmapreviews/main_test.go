package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/gmapreviews/config"
)

func TestApplyScrapeFlags(t *testing.T) {
	cmd := newScrapeCmd(nil)
	require.NoError(t, cmd.ParseFlags([]string{
		"--url", "https://maps.example/p",
		"--max", "20",
		"--output", "cafe",
		"--mode", "sideways",
		"--headless", "no",
	}))
	cfg := &config.Config{Session: config.SessionConfig{MaxReviews: 1000, OutputFilename: "reviews.csv", Mode: config.ModeManual}}
	cfg.Browser.Headless = true

	applyScrapeFlags(cmd, cfg)

	assert.Equal(t, "https://maps.example/p", cfg.Session.PlaceURL)
	assert.Equal(t, 20, cfg.Session.MaxReviews)
	assert.Equal(t, "cafe.csv", cfg.Session.OutputFilename)
	assert.Equal(t, config.ModeAuto, cfg.Session.Mode)
	assert.False(t, cfg.Browser.Headless)
	assert.Len(t, cfg.Warnings, 1)
}

func TestApplyScrapeFlags_UnsetKeepsEnv(t *testing.T) {
	cmd := newScrapeCmd(nil)
	require.NoError(t, cmd.ParseFlags(nil))
	cfg := &config.Config{Session: config.SessionConfig{PlaceURL: "https://maps.example/env", Mode: config.ModeHybrid}}

	applyScrapeFlags(cmd, cfg)

	assert.Equal(t, "https://maps.example/env", cfg.Session.PlaceURL)
	assert.Equal(t, config.ModeHybrid, cfg.Session.Mode)
}

func TestRunExtract(t *testing.T) {
	dir := t.TempDir()
	snapshot := filepath.Join(dir, "page.html")
	card := `<div class="jftiEf fontBodyMedium"><div class="d4r55 fontTitleMedium">%s</div><span class="rsqaWe">today</span><span class="wiI7pd">ok</span></div>`
	page := `<html><body><div role="main">` +
		strings.ReplaceAll(card, "%s", "Ana") +
		strings.ReplaceAll(card, "%s", "Ana") +
		strings.ReplaceAll(card, "%s", "Budi") +
		`</div></body></html>`
	require.NoError(t, os.WriteFile(snapshot, []byte(page), 0o644))

	cfg := config.SessionConfig{MaxReviews: 10, OutputDir: filepath.Join(dir, "out"), OutputFilename: "snap.csv"}
	require.NoError(t, runExtract(snapshot, cfg))

	data, err := os.ReadFile(filepath.Join(dir, "out", "snap.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3, "header plus two distinct reviews")
	assert.Contains(t, lines[1], "Ana")
	assert.Contains(t, lines[2], "Budi")
}

func TestRunExtract_MissingSnapshot(t *testing.T) {
	err := runExtract(filepath.Join(t.TempDir(), "nope.html"), config.SessionConfig{MaxReviews: 10})
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 60))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
}
