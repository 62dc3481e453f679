package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/eliteGoblin/netmon/internal/domain"
)

// PlaywrightLauncher implements domain.BrowserLauncher with playwright-go.
// The managed driver and Chromium are installed on demand; on a version
// mismatch a driver directory or browser binary in the working directory is used.
type PlaywrightLauncher struct {
	opts   LauncherOptions
	logger *zap.Logger
}

// NewPlaywrightLauncher creates a playwright launcher.
func NewPlaywrightLauncher(opts LauncherOptions) *PlaywrightLauncher {
	opts = opts.withDefaults()
	return &PlaywrightLauncher{opts: opts, logger: opts.Logger}
}

// Engine returns the backend name.
func (l *PlaywrightLauncher) Engine() domain.Engine {
	return domain.EnginePlaywright
}

// Launch starts a headless Chromium in a fresh context.
func (l *PlaywrightLauncher) Launch(ctx context.Context) (domain.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := l.launch(l.managedOptions(), "")
	if err == nil {
		return b, nil
	}
	if !isDriverMismatch(err) {
		return nil, err
	}
	l.logger.Warn("managed playwright driver unusable, trying local fallback", zap.Error(err))

	runOpts, execPath, ok := l.localOptions()
	if !ok {
		return nil, fmt.Errorf("%w: %v", domain.ErrDriverMismatch, err)
	}
	b, err = l.launch(runOpts, execPath)
	if err != nil {
		if isDriverMismatch(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrDriverMismatch, err)
		}
		return nil, err
	}
	return b, nil
}

func (l *PlaywrightLauncher) managedOptions() *playwright.RunOptions {
	// Driver output is discarded
	return &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
}

func (l *PlaywrightLauncher) localOptions() (*playwright.RunOptions, string, bool) {
	driverDir := findLocal(l.opts.WorkDir, localDriverDirs)
	execPath := findLocal(l.opts.WorkDir, localBrowserBinary)
	if driverDir == "" && execPath == "" {
		return nil, "", false
	}

	opts := l.managedOptions()
	if driverDir != "" {
		opts.DriverDirectory = driverDir
	}
	if execPath != "" {
		opts.SkipInstallBrowsers = true
	}
	return opts, execPath, true
}

func (l *PlaywrightLauncher) launch(runOpts *playwright.RunOptions, execPath string) (*playwrightBrowser, error) {
	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args:     chromiumArgs,
	}
	if execPath != "" {
		launchOpts.ExecutablePath = playwright.String(execPath)
	}
	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	// A new context shares no cookies or cache with anything else
	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{})
	if err != nil {
		browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(l.opts.Timeout.Milliseconds()))

	return &playwrightBrowser{pw: pw, browser: browser, page: page}, nil
}

// playwrightBrowser implements domain.Browser over a single page.
type playwrightBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page

	closeOnce sync.Once
	closeErr  error
}

func (b *playwrightBrowser) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.page.Goto(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (b *playwrightBrowser) Find(ctx context.Context, xpath string) (domain.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc := b.page.Locator("xpath=" + xpath)
	n, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", xpath, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", xpath, domain.ErrElementNotFound)
	}
	return &playwrightElement{loc: loc.First()}, nil
}

func (b *playwrightBrowser) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = errors.Join(b.browser.Close(), b.pw.Stop())
	})
	return b.closeErr
}

// playwrightElement implements domain.Element over a locator.
type playwrightElement struct {
	loc playwright.Locator
}

func (e *playwrightElement) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.loc.InnerText()
}

func (e *playwrightElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.Click()
}

func (e *playwrightElement) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.Clear()
}

func (e *playwrightElement) Type(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.PressSequentially(value)
}

func (e *playwrightElement) SelectByText(ctx context.Context, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.loc.SelectOption(playwright.SelectOptionValues{Labels: &[]string{label}})
	return err
}

func (e *playwrightElement) Activate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.loc.Evaluate("el => el.click()", nil)
	return err
}

// Ensure the playwright types implement the domain interfaces.
var (
	_ domain.BrowserLauncher = (*PlaywrightLauncher)(nil)
	_ domain.Browser         = (*playwrightBrowser)(nil)
	_ domain.Element         = (*playwrightElement)(nil)
)
