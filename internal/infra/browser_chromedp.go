package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/eliteGoblin/netmon/internal/domain"
)

// ChromedpLauncher implements domain.BrowserLauncher by driving an installed
// Chrome over the DevTools protocol. A browser binary in the working
// directory is used when none is found on the system.
type ChromedpLauncher struct {
	opts   LauncherOptions
	logger *zap.Logger
}

// NewChromedpLauncher creates a chromedp launcher.
func NewChromedpLauncher(opts LauncherOptions) *ChromedpLauncher {
	opts = opts.withDefaults()
	return &ChromedpLauncher{opts: opts, logger: opts.Logger}
}

// Engine returns the backend name.
func (l *ChromedpLauncher) Engine() domain.Engine {
	return domain.EngineChromedp
}

// Launch starts a headless Chrome with a single tab.
func (l *ChromedpLauncher) Launch(ctx context.Context) (domain.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := l.launch(ctx, "")
	if err == nil {
		return b, nil
	}
	if !isDriverMismatch(err) {
		return nil, err
	}
	l.logger.Warn("system chrome unusable, trying local fallback", zap.Error(err))

	execPath := findLocal(l.opts.WorkDir, localBrowserBinary)
	if execPath == "" {
		return nil, fmt.Errorf("%w: %v", domain.ErrDriverMismatch, err)
	}
	b, err = l.launch(ctx, execPath)
	if err != nil {
		if isDriverMismatch(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrDriverMismatch, err)
		}
		return nil, err
	}
	return b, nil
}

func (l *ChromedpLauncher) launch(ctx context.Context, execPath string) (*chromedpBrowser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.Flag("incognito", true),
		chromedp.Flag("disk-cache-size", "0"),
		chromedp.Flag("log-level", "3"),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	// The session outlives the caller's context; Close ends it
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	b := &chromedpBrowser{
		tab:     tabCtx,
		cancel:  func() { tabCancel(); allocCancel() },
		timeout: l.opts.Timeout,
	}

	// The first Run starts the browser and ties its process to the context it
	// is given, so it must be the tab context itself, not a timeout child.
	if err := chromedp.Run(tabCtx); err != nil {
		b.cancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return b, nil
}

// chromedpBrowser implements domain.Browser over one tab.
type chromedpBrowser struct {
	tab     context.Context
	cancel  context.CancelFunc
	timeout time.Duration

	closeOnce sync.Once
}

// run executes actions in the tab, bounded by the operation timeout and
// abandoned early when ctx is cancelled.
func (b *chromedpBrowser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.tab, b.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (b *chromedpBrowser) Navigate(ctx context.Context, url string) error {
	if err := b.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (b *chromedpBrowser) Find(ctx context.Context, xpath string) (domain.Element, error) {
	var nodes []*cdp.Node
	// AtLeast(0) returns immediately instead of waiting for a match
	if err := b.run(ctx, chromedp.Nodes(xpath, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("query %s: %w", xpath, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%s: %w", xpath, domain.ErrElementNotFound)
	}
	return &chromedpElement{browser: b, node: nodes[0], xpath: xpath}, nil
}

func (b *chromedpBrowser) Close() error {
	var err error
	b.closeOnce.Do(func() {
		// Cancel shuts the browser down gracefully; the allocator cancel reaps the process
		err = chromedp.Cancel(b.tab)
		b.cancel()
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// chromedpElement implements domain.Element for the first node matching xpath.
type chromedpElement struct {
	browser *chromedpBrowser
	node    *cdp.Node
	xpath   string
}

func (e *chromedpElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *chromedpElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.browser.run(ctx, chromedp.Text(e.ids(), &text, chromedp.ByNodeID))
	return text, err
}

func (e *chromedpElement) Click(ctx context.Context) error {
	return e.browser.run(ctx, chromedp.Click(e.ids(), chromedp.ByNodeID))
}

func (e *chromedpElement) Clear(ctx context.Context) error {
	return e.browser.run(ctx, chromedp.Clear(e.ids(), chromedp.ByNodeID))
}

func (e *chromedpElement) Type(ctx context.Context, value string) error {
	return e.browser.run(ctx, chromedp.SendKeys(e.ids(), value, chromedp.ByNodeID))
}

func (e *chromedpElement) SelectByText(ctx context.Context, label string) error {
	var ok bool
	if err := e.browser.run(ctx, chromedp.Evaluate(selectByTextScript(e.xpath, label), &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("option %q: %w", label, domain.ErrElementNotFound)
	}
	return nil
}

func (e *chromedpElement) Activate(ctx context.Context) error {
	var ok bool
	if err := e.browser.run(ctx, chromedp.Evaluate(activateScript(e.xpath), &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", e.xpath, domain.ErrElementNotFound)
	}
	return nil
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

const xpathLookup = `document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue`

func activateScript(xpath string) string {
	return fmt.Sprintf(`(() => {
	const el = %s;
	if (!el) return false;
	el.click();
	return true;
})()`, fmt.Sprintf(xpathLookup, jsString(xpath)))
}

func selectByTextScript(xpath, label string) string {
	return fmt.Sprintf(`(() => {
	const sel = %s;
	if (!sel || !sel.options) return false;
	const want = %s;
	for (const opt of sel.options) {
		if (opt.text.trim() === want) {
			sel.value = opt.value;
			opt.selected = true;
			sel.dispatchEvent(new Event("input", { bubbles: true }));
			sel.dispatchEvent(new Event("change", { bubbles: true }));
			return true;
		}
	}
	return false;
})()`, fmt.Sprintf(xpathLookup, jsString(xpath)), jsString(label))
}

// Ensure the chromedp types implement the domain interfaces.
var (
	_ domain.BrowserLauncher = (*ChromedpLauncher)(nil)
	_ domain.Browser         = (*chromedpBrowser)(nil)
	_ domain.Element         = (*chromedpElement)(nil)
)
