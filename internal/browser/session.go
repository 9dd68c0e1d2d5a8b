package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"

	"exportcheck/internal/validation"
)

const pollInterval = 250 * time.Millisecond

// Options configures the browser process
type Options struct {
	Headless    bool
	ExecPath    string
	UserDataDir string
	// DownloadDir receives downloaded export files
	DownloadDir string
	// StepTimeout bounds every single browser action
	StepTimeout time.Duration
}

// Session drives one Chrome tab through the Chrome DevTools Protocol. It
// implements validation.Session; every selector is an XPath expression.
type Session struct {
	ctx     context.Context
	opts    Options
	logger  *slog.Logger
	closeFn func()
}

var _ validation.Session = (*Session)(nil)

// allocatorOptions builds the exec allocator options for opts
func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	out := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	out = append(out,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.WindowSize(1600, 1000),
	)
	if opts.ExecPath != "" {
		out = append(out, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserDataDir != "" {
		out = append(out, chromedp.UserDataDir(opts.UserDataDir))
	}
	return out
}

// NewSession starts a browser and routes its downloads to opts.DownloadDir
func NewSession(opts Options, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = 15 * time.Second
	}
	logger = logger.With(slog.String("component", "browser"))

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(opts)...)
	ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))

	s := &Session{ctx: ctx, opts: opts, logger: logger}
	s.closeFn = func() {
		cancel()
		allocCancel()
	}

	start := []chromedp.Action{}
	if opts.DownloadDir != "" {
		start = append(start, browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(opts.DownloadDir).
			WithEventsEnabled(true))
	}
	if err := chromedp.Run(ctx, start...); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Info("browser session started",
		slog.Bool("headless", opts.Headless),
		slog.String("download_dir", opts.DownloadDir))
	return s, nil
}

// Close shuts the browser down
func (s *Session) Close() {
	if s.closeFn != nil {
		s.closeFn()
		s.closeFn = nil
	}
}

// run executes actions on the tab, bounded by timeout and by ctx
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if timeout <= 0 {
		timeout = s.opts.StepTimeout
	}
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timed out after %s: %w", timeout, err)
	}
	return err
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("navigate", slog.String("url", url))
	return s.run(ctx, 0, chromedp.Navigate(url))
}

func (s *Session) Reload(ctx context.Context) error {
	return s.run(ctx, 0, chromedp.Reload())
}

func (s *Session) Location(ctx context.Context) (string, error) {
	var url string
	err := s.run(ctx, 0, chromedp.Location(&url))
	return url, err
}

func (s *Session) Visible(ctx context.Context, selector string) (bool, error) {
	var visible bool
	err := s.run(ctx, 0, chromedp.Evaluate(visibleScript(selector), &visible))
	return visible, err
}

func (s *Session) Click(ctx context.Context, selector string) error {
	return s.run(ctx, 0,
		chromedp.ScrollIntoView(selector, chromedp.BySearch),
		chromedp.Click(selector, chromedp.BySearch),
	)
}

func (s *Session) JSClick(ctx context.Context, selector string) error {
	var clicked bool
	if err := s.run(ctx, 0, chromedp.Evaluate(clickScript(selector), &clicked)); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("no element matches %s", selector)
	}
	return nil
}

func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	var text string
	err := s.run(ctx, 0, chromedp.Text(selector, &text, chromedp.BySearch))
	return text, err
}

// SendText replaces the content of an input element
func (s *Session) SendText(ctx context.Context, selector, text string) error {
	return s.run(ctx, 0,
		chromedp.WaitVisible(selector, chromedp.BySearch),
		chromedp.Clear(selector, chromedp.BySearch),
		chromedp.SendKeys(selector, text, chromedp.BySearch),
	)
}

func (s *Session) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := s.run(ctx, 0, chromedp.AttributeValue(selector, name, &value, &ok, chromedp.BySearch))
	return value, ok, err
}

func (s *Session) Tables(ctx context.Context) ([]validation.HTMLTable, error) {
	var tables []validation.HTMLTable
	err := s.run(ctx, 0, chromedp.Evaluate(tablesScript, &tables))
	return tables, err
}

func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.BySearch))
}

// WaitGone waits until no displayed element matches selector. A hidden
// overlay that stays in the document counts as gone.
func (s *Session) WaitGone(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.opts.StepTimeout
	}
	var gone bool
	return s.run(ctx, timeout+time.Second, chromedp.Poll(goneScript(selector), &gone,
		chromedp.WithPollingInterval(pollInterval),
		chromedp.WithPollingTimeout(timeout),
	))
}
