package engine

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/MGMAppDev/soccerview/internal/scraper/adapters"
)

// Browser opens a headless Chrome session for browser-transport adapters.
// The caller owns the session and must Close it.
func (e *Engine) Browser(ctx context.Context) (adapters.Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(e.nextUserAgent()),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, ctxCancel := chromedp.NewContext(allocCtx)

	// Starting the browser eagerly surfaces a missing Chrome binary here
	// instead of on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		ctxCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return &browserSession{
		ctx:         browserCtx,
		ctxCancel:   ctxCancel,
		allocCancel: allocCancel,
	}, nil
}

type browserSession struct {
	ctx         context.Context
	ctxCancel   context.CancelFunc
	allocCancel context.CancelFunc
}

func (b *browserSession) Open(ctx context.Context, url, waitSelector string) error {
	actions := []chromedp.Action{chromedp.Navigate(url)}
	if waitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(waitSelector, chromedp.ByQuery))
	}
	if err := chromedp.Run(b.ctx, actions...); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (b *browserSession) Evaluate(ctx context.Context, script string, out any) error {
	if err := chromedp.Run(b.ctx, chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

func (b *browserSession) Close() error {
	b.ctxCancel()
	b.allocCancel()
	return nil
}
