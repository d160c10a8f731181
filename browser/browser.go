// Package browser adapts a go-rod controlled Chromium to the dom interfaces
// used by the extractor and the session controller.
package browser

import (
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/gmapreviews/config"
	"github.com/use-agent/gmapreviews/models"
)

const (
	// UserAgent is a desktop Chrome UA; the listing page serves a reduced
	// mobile layout to unknown agents.
	UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

	language     = "en-US"
	windowWidth  = 1280
	windowHeight = 1024
)

// Browser owns one Chromium process. Not safe for concurrent sessions:
// callers open one Page at a time.
type Browser struct {
	browser *rod.Browser
	cfg     config.BrowserConfig
}

// Launch starts a browser according to cfg.
func Launch(cfg config.BrowserConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	l.Set(flags.Flag("window-size"), "1280,1024")
	l.Set(flags.Flag("lang"), language)
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL, "headless", cfg.Headless)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}
	return &Browser{browser: b, cfg: cfg}, nil
}

// NewPage opens a tab with the user agent, language header, viewport and
// resource blocking applied. Nothing is navigated yet.
func (b *Browser) NewPage() (*Page, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to open page",
			err,
		)
	}

	if err := (proto.NetworkSetUserAgentOverride{
		UserAgent:      UserAgent,
		AcceptLanguage: language,
	}).Call(page); err != nil {
		slog.Warn("user agent override failed", "error", err)
	}
	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{"Accept-Language": language + ",en;q=0.9"}),
	}.Call(page)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  windowWidth,
		Height: windowHeight,
	}); err != nil {
		slog.Debug("viewport override failed", "error", err)
	}

	return &Page{
		page:   page,
		router: setupHijack(page, b.cfg.BlockedResourceTypes),
	}, nil
}

// Close kills the browser process.
func (b *Browser) Close() {
	if err := b.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
		return
	}
	slog.Info("browser closed")
}
