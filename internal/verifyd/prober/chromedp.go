package prober

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/raysh454/kakunin/internal/logging"
)

// Headless-browser backed probe. Slower than nethttp but sees the rendered
// page, so titles injected by scripts count and screenshots are possible.
type ChromedpProber struct {
	idleAfter     time.Duration
	screenshotDir string
	allocOpts     []chromedp.ExecAllocatorOption
	logger        logging.Logger
}

func NewChromedpProber(cfg *Config, logger logging.Logger) (Prober, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	componentLogger := logger.With(logging.Field{Key: "backend", Value: "chromedp"})

	idleAfter := cfg.IdleAfter
	if idleAfter <= 0 {
		idleAfter = 2 * time.Second
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	if cfg.ScreenshotDir != "" {
		if err := os.MkdirAll(cfg.ScreenshotDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure screenshot dir: %w", err)
		}
	}

	componentLogger.Info("created chromedp prober",
		logging.Field{Key: "idle_after", Value: idleAfter.String()})

	return &ChromedpProber{
		idleAfter:     idleAfter,
		screenshotDir: cfg.ScreenshotDir,
		allocOpts:     opts,
		logger:        componentLogger,
	}, nil
}

// waitNetworkIdle returns a channel that closes once the page's network has
// been quiet for idleAfter. The timer is armed immediately so a page with no
// subresources still reports idle.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) chan struct{} {
	idleChan := make(chan struct{})
	var activeReqs int32
	var timer *time.Timer
	var timerMutex sync.Mutex
	var once sync.Once

	startTimer := func() {
		timerMutex.Lock()
		defer timerMutex.Unlock()

		if timer != nil {
			timer.Stop()
		}

		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&activeReqs) == 0 {
				once.Do(func() {
					close(idleChan)
				})
			}
		})
	}

	startTimer()

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			atomic.AddInt32(&activeReqs, 1)
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			if atomic.AddInt32(&activeReqs, -1) == 0 {
				startTimer()
			}
		}
	})

	return idleChan
}

// captureMainStatus records the HTTP status of the first document response
// seen on the target.
func captureMainStatus(ctx context.Context, status *int64) {
	var once sync.Once
	chromedp.ListenTarget(ctx, func(ev any) {
		if resp, ok := ev.(*network.EventResponseReceived); ok && resp.Type == network.ResourceTypeDocument {
			once.Do(func() {
				atomic.StoreInt64(status, resp.Response.Status)
			})
		}
	})
}

// Probe renders the target in a fresh browser tab, waits for the network to
// settle and inspects the live DOM.
func (p *ChromedpProber) Probe(ctx context.Context, target string) (*Result, error) {
	if target == "" {
		return nil, fmt.Errorf("empty target")
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, p.allocOpts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var mainStatus int64
	captureMainStatus(tabCtx, &mainStatus)
	idle := waitNetworkIdle(tabCtx, p.idleAfter)

	p.logger.Debug("probing target", logging.Field{Key: "url", Value: target})

	start := time.Now()
	if err := chromedp.Run(tabCtx, chromedp.Navigate(target)); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}

	select {
	case <-idle:
	case <-tabCtx.Done():
		return nil, tabCtx.Err()
	}
	elapsed := time.Since(start)

	var (
		title       string
		html        string
		hasViewport bool
		shot        []byte
	)
	tasks := chromedp.Tasks{
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html),
		chromedp.Evaluate(`document.querySelector('meta[name="viewport"]') !== null`, &hasViewport),
	}
	if p.screenshotDir != "" {
		tasks = append(tasks, chromedp.CaptureScreenshot(&shot))
	}
	if err := chromedp.Run(tabCtx, tasks); err != nil {
		return nil, fmt.Errorf("inspect page: %w", err)
	}

	res := &Result{
		URL:             target,
		StatusCode:      int(atomic.LoadInt64(&mainStatus)),
		ResponseTime:    elapsed,
		Title:           strings.TrimSpace(title),
		BodyBytes:       len(html),
		HasViewportMeta: hasViewport,
	}

	if len(shot) > 0 {
		name := fmt.Sprintf("shot-%s.png", uuid.New().String())
		path := filepath.Join(p.screenshotDir, name)
		if err := atomicWriteFile(path, shot, 0o644); err != nil {
			p.logger.Warn("failed to store screenshot",
				logging.Field{Key: "path", Value: path},
				logging.Field{Key: "error", Value: err.Error()})
		} else {
			res.ScreenshotPath = path
		}
	}

	p.logger.Debug("probe finished",
		logging.Field{Key: "url", Value: target},
		logging.Field{Key: "status", Value: res.StatusCode},
		logging.Field{Key: "elapsed", Value: elapsed.String()})

	return res, nil
}

func (p *ChromedpProber) Close() error {
	return nil
}

// atomicWriteFile writes data through a temp file in the same directory and
// renames it into place. The screenshot dir is served over HTTP while probes
// write into it, so a file must never be visible half-written.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".shot-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmp = nil
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
