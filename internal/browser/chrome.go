package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"
)

// ChromeLauncher starts local Chrome processes through chromedp.
type ChromeLauncher struct {
	Logger *slog.Logger
}

// Launch starts a new Chrome process with a single blank tab.
func (l *ChromeLauncher) Launch(ctx context.Context, opts Options) (Browser, error) {
	opts = opts.withDefaults()

	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(1280, 900),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	// The browser outlives the launch context; only the start-up is bound by ctx.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
	)

	c := newChrome(tabCtx, opts, logger, func() error {
		err := chromedp.Cancel(tabCtx)
		cancelTab()
		cancelAlloc()
		return err
	})

	// The first Run allocates the process under the context it is given, so
	// it must see tabCtx itself and not a step context that is cancelled on
	// return.
	if err := c.start(ctx, func() error { return chromedp.Run(tabCtx) }); err != nil {
		c.Close()
		return nil, err
	}

	logger.Debug("browser launched",
		"headless", opts.Headless,
		"slow_mo", opts.SlowMo,
		"timeout", opts.Timeout,
	)
	return c, nil
}

// Chrome is a Browser backed by a chromedp tab.
type Chrome struct {
	ctx      context.Context
	opts     Options
	logger   *slog.Logger
	pace     *rate.Limiter
	shutdown func() error

	mu     sync.Mutex
	closed bool
}

func newChrome(ctx context.Context, opts Options, logger *slog.Logger, shutdown func() error) *Chrome {
	c := &Chrome{
		ctx:      ctx,
		opts:     opts,
		logger:   logger,
		shutdown: shutdown,
	}
	if opts.SlowMo > 0 {
		c.pace = rate.NewLimiter(rate.Every(opts.SlowMo), 1)
	}
	return c
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, "navigate", url, chromedp.Navigate(url))
}

func (c *Chrome) WaitVisible(ctx context.Context, sel string) error {
	return c.run(ctx, "wait visible", sel, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

func (c *Chrome) WaitNotPresent(ctx context.Context, sel string) error {
	return c.run(ctx, "wait not present", sel, chromedp.WaitNotPresent(sel, chromedp.ByQuery))
}

func (c *Chrome) Click(ctx context.Context, sel string) error {
	return c.run(ctx, "click", sel, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible))
}

func (c *Chrome) SendKeys(ctx context.Context, sel, text string) error {
	return c.run(ctx, "send keys", sel, chromedp.SendKeys(sel, text, chromedp.ByQuery, chromedp.NodeVisible))
}

func (c *Chrome) SetValue(ctx context.Context, sel, value string) error {
	return c.run(ctx, "set value", sel, chromedp.SetValue(sel, value, chromedp.ByQuery))
}

func (c *Chrome) Evaluate(ctx context.Context, expr string, out any) error {
	return c.run(ctx, "evaluate", "", chromedp.Evaluate(expr, out))
}

// Close shuts the browser down. Calling Close twice returns ErrClosed.
func (c *Chrome) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	c.mu.Unlock()

	if err := c.shutdown(); err != nil {
		return fmt.Errorf("browser: shutdown: %w", err)
	}
	c.logger.Debug("browser closed")
	return nil
}

// start waits for allocate, bounded by ctx and the step timeout. allocate
// runs on the browser's own context; giving up here does not stop it, the
// caller closes the browser instead.
func (c *Chrome) start(ctx context.Context, allocate func() error) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- allocate() }()

	select {
	case err := <-done:
		if err != nil {
			return &StepError{Step: "launch", Err: err}
		}
		return nil
	case <-ctx.Done():
		return &StepError{Step: "launch", Err: ctx.Err()}
	}
}

// run executes actions under the step timeout, after waiting for the
// slow-mo pacer. Cancelling ctx aborts the step without closing the tab.
func (c *Chrome) run(ctx context.Context, step, target string, actions ...chromedp.Action) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if c.pace != nil {
		if err := c.pace.Wait(ctx); err != nil {
			return &StepError{Step: step, Target: target, Err: err}
		}
	}

	stepCtx, cancel := context.WithTimeout(c.ctx, c.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(stepCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return &StepError{Step: step, Target: target, Err: err}
	}
	return nil
}
