// Package fixtures provides test helpers for unit and integration tests.
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/eliteGoblin/netmon/internal/domain"
)

// MsgBadCredentials is shown by FakePortal after a rejected submission.
const MsgBadCredentials = "账号或密码错误"

// FakePortal is an in-memory captive portal implementing domain.Browser.
// Form controls live at the first fallback locator of each list in the
// portal description; every other locator matches nothing.
type FakePortal struct {
	mu sync.Mutex

	portal   domain.Portal
	loggedIn bool
	message  string

	// Credentials accepted on submit. Empty means anything goes.
	ExpectAccount  string
	ExpectPassword string

	// Operators offered by the dropdown. Nil hides the dropdown.
	Operators []string

	// HideForm removes account, password and submit controls.
	HideForm bool

	// NavigateErrs makes the next n navigations fail as if the gateway
	// were unreachable. The browser then shows an error page with no controls.
	NavigateErrs int

	// BannerErrs makes the next n success banner lookups fail with a script error.
	BannerErrs int

	// PanicOnNavigate makes the next navigation panic.
	PanicOnNavigate bool

	fields      map[string]string
	errorPage   bool
	selected    string
	navigations int
	submissions int
	closed      bool
}

// NewFakePortal creates a logged-out portal with no status message.
func NewFakePortal(portal domain.Portal) *FakePortal {
	return &FakePortal{portal: portal, fields: make(map[string]string)}
}

// SetLoggedIn forces the session state, e.g. to simulate a dropped session.
func (f *FakePortal) SetLoggedIn(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedIn = v
}

// SetMessage sets the text of the message element. Empty hides it.
func (f *FakePortal) SetMessage(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.message = msg
}

// LoggedIn reports the session state.
func (f *FakePortal) LoggedIn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loggedIn
}

// Navigations returns how many times Navigate succeeded.
func (f *FakePortal) Navigations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.navigations
}

// Submissions returns how many times the submit control was activated.
func (f *FakePortal) Submissions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submissions
}

// Selected returns the operator chosen in the dropdown.
func (f *FakePortal) Selected() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selected
}

// Closed reports whether Close was called.
func (f *FakePortal) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakePortal) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return errors.New("browser has been closed")
	}
	if f.PanicOnNavigate {
		f.PanicOnNavigate = false
		panic("renderer crashed")
	}
	if f.NavigateErrs > 0 {
		f.NavigateErrs--
		f.errorPage = true
		return fmt.Errorf("net::ERR_CONNECTION_REFUSED at %s", url)
	}
	f.errorPage = false
	f.navigations++
	return nil
}

func (f *FakePortal) Find(ctx context.Context, xpath string) (domain.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, errors.New("browser has been closed")
	}

	if xpath == f.portal.SuccessXPath && f.BannerErrs > 0 {
		f.BannerErrs--
		return nil, errors.New("javascript error: execution context was destroyed")
	}

	kind := ""
	switch {
	case f.errorPage:
	case xpath == f.portal.SuccessXPath && f.loggedIn:
		kind = "banner"
	case xpath == f.portal.MessageXPath && !f.loggedIn && f.message != "":
		kind = "message"
	case !f.loggedIn && f.Operators != nil && first(f.portal.OperatorXPaths) == xpath:
		kind = "operator"
	case !f.loggedIn && !f.HideForm && first(f.portal.AccountXPaths) == xpath:
		kind = "account"
	case !f.loggedIn && !f.HideForm && first(f.portal.PasswordXPaths) == xpath:
		kind = "password"
	case !f.loggedIn && !f.HideForm && first(f.portal.SubmitXPaths) == xpath:
		kind = "submit"
	}
	if kind == "" {
		return nil, fmt.Errorf("%s: %w", xpath, domain.ErrElementNotFound)
	}
	return &fakeControl{portal: f, kind: kind}, nil
}

func (f *FakePortal) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *FakePortal) submit() {
	f.submissions++
	accountOK := f.ExpectAccount == "" || f.fields["account"] == f.ExpectAccount
	passwordOK := f.ExpectPassword == "" || f.fields["password"] == f.ExpectPassword
	if accountOK && passwordOK {
		f.loggedIn = true
		f.message = ""
		return
	}
	f.message = MsgBadCredentials
}

func first(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

// fakeControl is one element of a FakePortal.
type fakeControl struct {
	portal *FakePortal
	kind   string
}

func (c *fakeControl) Text(ctx context.Context) (string, error) {
	c.portal.mu.Lock()
	defer c.portal.mu.Unlock()
	switch c.kind {
	case "banner":
		return "\n" + c.portal.portal.SuccessPhrase + " ", nil
	case "message":
		return c.portal.message, nil
	default:
		return c.portal.fields[c.kind], nil
	}
}

func (c *fakeControl) Click(ctx context.Context) error { return ctx.Err() }

func (c *fakeControl) Clear(ctx context.Context) error {
	c.portal.mu.Lock()
	defer c.portal.mu.Unlock()
	c.portal.fields[c.kind] = ""
	return nil
}

func (c *fakeControl) Type(ctx context.Context, value string) error {
	c.portal.mu.Lock()
	defer c.portal.mu.Unlock()
	c.portal.fields[c.kind] += value
	return nil
}

func (c *fakeControl) SelectByText(ctx context.Context, label string) error {
	c.portal.mu.Lock()
	defer c.portal.mu.Unlock()
	if c.kind != "operator" {
		return fmt.Errorf("%s is not a select element", c.kind)
	}
	for _, op := range c.portal.Operators {
		if op == label {
			c.portal.selected = label
			return nil
		}
	}
	return fmt.Errorf("option %q: %w", label, domain.ErrElementNotFound)
}

func (c *fakeControl) Activate(ctx context.Context) error {
	c.portal.mu.Lock()
	defer c.portal.mu.Unlock()
	if c.kind == "submit" {
		c.portal.submit()
	}
	return nil
}

// FakeLauncher implements domain.BrowserLauncher by handing out a fixed browser.
type FakeLauncher struct {
	mu       sync.Mutex
	Browser  domain.Browser
	Err      error
	Block    chan struct{} // when set, Launch waits on it or ctx
	launches int
}

// Launch returns Browser or Err.
func (l *FakeLauncher) Launch(ctx context.Context) (domain.Browser, error) {
	l.mu.Lock()
	l.launches++
	block := l.Block
	l.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Browser, nil
}

// Engine returns a placeholder engine name.
func (l *FakeLauncher) Engine() domain.Engine {
	return "fake"
}

// Launches returns how many times Launch was called.
func (l *FakeLauncher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

// Ensure fakes implement the domain interfaces.
var (
	_ domain.Browser         = (*FakePortal)(nil)
	_ domain.Element         = (*fakeControl)(nil)
	_ domain.BrowserLauncher = (*FakeLauncher)(nil)
)
