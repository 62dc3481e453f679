package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/eliteGoblin/netmon/internal/domain"
)

// mockElement implements domain.Element for testing
type mockElement struct {
	name    string
	text    string
	textErr error
	failOn  string // action name that should fail
	log     *actionLog
	value   string
}

func (m *mockElement) do(action string) error {
	m.log.add(m.name + ":" + action)
	if m.failOn == action {
		return fmt.Errorf("%s failed on %s", action, m.name)
	}
	return nil
}

func (m *mockElement) Text(ctx context.Context) (string, error) {
	if m.textErr != nil {
		return "", m.textErr
	}
	return m.text, nil
}

func (m *mockElement) Click(ctx context.Context) error { return m.do("click") }

func (m *mockElement) Clear(ctx context.Context) error {
	m.value = ""
	return m.do("clear")
}

func (m *mockElement) Type(ctx context.Context, value string) error {
	m.value += value
	return m.do("type=" + value)
}

func (m *mockElement) SelectByText(ctx context.Context, label string) error {
	return m.do("select=" + label)
}

func (m *mockElement) Activate(ctx context.Context) error { return m.do("activate") }

// actionLog records element interactions in order
type actionLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *actionLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, s)
}

func (l *actionLog) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.entries, ",")
}

// mockBrowser implements domain.Browser for testing
type mockBrowser struct {
	elements    map[string]*mockElement
	findErrs    map[string]error
	navigateErr error
	navigated   []string
	lookups     []string
	log         *actionLog
}

func newMockBrowser() *mockBrowser {
	return &mockBrowser{
		elements: make(map[string]*mockElement),
		findErrs: make(map[string]error),
		log:      &actionLog{},
	}
}

func (m *mockBrowser) with(xpath, name, text string) *mockElement {
	el := &mockElement{name: name, text: text, log: m.log}
	m.elements[xpath] = el
	return el
}

func (m *mockBrowser) Navigate(ctx context.Context, url string) error {
	m.navigated = append(m.navigated, url)
	return m.navigateErr
}

func (m *mockBrowser) Find(ctx context.Context, xpath string) (domain.Element, error) {
	m.lookups = append(m.lookups, xpath)
	if err, ok := m.findErrs[xpath]; ok {
		return nil, err
	}
	if el, ok := m.elements[xpath]; ok {
		return el, nil
	}
	return nil, fmt.Errorf("%s: %w", xpath, domain.ErrElementNotFound)
}

func (m *mockBrowser) Close() error { return nil }

var errStale = errors.New("stale element reference")
