// Package browser implements scraper.Backend with a local headless Chrome,
// evaluating the extraction schema itself instead of delegating it to the API.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/chromedp/chromedp"

	"ali-crawler/metrics"
	"ali-crawler/scraper"
	"ali-crawler/utils"
)

const backendName = "chrome"

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config controls the local browser.
type Config struct {
	ChromeBin   string
	PageTimeout time.Duration
	// SettleDelay is waited after navigation before running instructions.
	SettleDelay time.Duration
	// ClickDelay is waited after every click instruction.
	ClickDelay time.Duration
}

// Backend renders pages in headless Chrome.
type Backend struct {
	cfg         Config
	logger      *utils.Logger
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	cancelRoot  context.CancelFunc
}

var _ scraper.Backend = (*Backend)(nil)

// New starts a browser allocator. Close must be called to release it.
func New(cfg Config, logger *utils.Logger) *Backend {
	if cfg.PageTimeout == 0 {
		cfg.PageTimeout = 90 * time.Second
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = 4 * time.Second
	}
	if cfg.ClickDelay == 0 {
		cfg.ClickDelay = time.Second
	}

	chromeBin := cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[browser] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(defaultUserAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	rootCtx, cancelRoot := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return &Backend{
		cfg:         cfg,
		logger:      logger,
		allocCtx:    rootCtx,
		cancelAlloc: cancelAlloc,
		cancelRoot:  cancelRoot,
	}
}

// Close shuts the browser down.
func (b *Backend) Close() error {
	b.cancelRoot()
	b.cancelAlloc()
	return nil
}

// Do navigates to q.URL, replays the browser instructions and extracts the
// content. Without q.Parse the page body text is returned as a JSON string.
func (b *Backend) Do(ctx context.Context, q *scraper.Query) (scraper.Content, error) {
	start := time.Now()
	content, err := b.do(ctx, q)
	metrics.ScrapeDuration.WithLabelValues(backendName).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ScrapeRequests.WithLabelValues(backendName, "error").Inc()
		return nil, err
	}
	metrics.ScrapeRequests.WithLabelValues(backendName, "ok").Inc()
	return content, nil
}

func (b *Backend) do(ctx context.Context, q *scraper.Query) (scraper.Content, error) {
	tabCtx, cancel := chromedp.NewContext(b.allocCtx)
	defer cancel()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.cfg.PageTimeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	actions := []chromedp.Action{
		chromedp.Navigate(q.URL),
		chromedp.Sleep(b.cfg.SettleDelay),
	}
	actions = append(actions, b.instructionActions(q.BrowserInstructions)...)

	var page string
	if q.Parse {
		actions = append(actions, chromedp.OuterHTML("html", &page, chromedp.ByQuery))
	} else {
		actions = append(actions, chromedp.Text("body", &page, chromedp.ByQuery))
	}

	b.logger.Debug("[browser] Rendering %s (%d instructions)", q.URL, len(q.BrowserInstructions))
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return nil, fmt.Errorf("browser: render %s: %w", q.URL, err)
	}

	if !q.Parse {
		raw, err := json.Marshal(page)
		if err != nil {
			return nil, fmt.Errorf("browser: encode body: %w", err)
		}
		return scraper.Content(raw), nil
	}

	doc, err := htmlquery.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("browser: parse html of %s: %w", q.URL, err)
	}
	content, err := Extract(doc, q.ParsingInstructions)
	if err != nil {
		return nil, fmt.Errorf("browser: extract %s: %w", q.URL, err)
	}
	return content, nil
}

func (b *Backend) instructionActions(instructions []scraper.Instruction) []chromedp.Action {
	var actions []chromedp.Action
	for _, in := range instructions {
		switch in.Type {
		case "scroll":
			actions = append(actions,
				chromedp.Evaluate(fmt.Sprintf(`window.scrollBy(%d, %d)`, in.X, in.Y), nil),
				chromedp.Sleep(time.Duration(in.WaitTime*float64(time.Second))),
			)
		case "click":
			// A missing element is not an error: the panel may already be expanded.
			var clicked bool
			actions = append(actions,
				chromedp.Evaluate(fmt.Sprintf(`
					(function() {
						var n = document.evaluate(%s, document, null,
							XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
						if (n) { n.click(); return true; }
						return false;
					})()
				`, strconv.Quote(in.Selector.Value)), &clicked),
				chromedp.Sleep(b.cfg.ClickDelay),
			)
		default:
			b.logger.Warn("[browser] Ignoring unsupported instruction %q", in.Type)
		}
	}
	return actions
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
