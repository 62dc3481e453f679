// Package config holds the on-disk configuration document and its persistence.
package config

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/eliteGoblin/netmon/internal/domain"
)

const (
	// DefaultHost is the campus gateway page.
	DefaultHost = "http://10.9.1.3/"

	// DefaultFrequencies is the poll interval in seconds used when none (or garbage) is configured.
	DefaultFrequencies = 10

	MinFrequencies = 5
	MaxFrequencies = 3600

	// DefaultFileName is resolved relative to the executable's directory.
	DefaultFileName = "config.json"
)

// Operators lists the choices offered by the gateway's operator dropdown.
var Operators = []string{"校园网", "中国电信", "中国移动", "中国联通"}

// Config is the whole configuration document.
type Config struct {
	Login  Login  `json:"login"`
	Daemon Daemon `json:"daemon"`
}

// Login holds credentials and optional XPath overrides for the login form.
type Login struct {
	Account       string `json:"account"`
	Password      string `json:"password"`
	Operator      string `json:"operator"`
	OperatorXPath string `json:"operator_xpath"`
	AccountXPath  string `json:"account_xpath"`
	PasswordXPath string `json:"password_xpath"`
	SubmitXPath   string `json:"submit_xpath"`
}

// Daemon holds poll loop settings.
type Daemon struct {
	Host        string        `json:"host"`
	Frequencies Interval      `json:"frequencies"`
	Engine      domain.Engine `json:"engine,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Daemon: Daemon{
			Host:        DefaultHost,
			Frequencies: Seconds(DefaultFrequencies),
			Engine:      domain.EnginePlaywright,
		},
	}
}

// Usable reports whether the configuration has enough to attempt a login.
func (c Config) Usable() bool {
	return strings.TrimSpace(c.Login.Account) != ""
}

// Interval is a poll interval in seconds. It remembers text that failed to
// parse so Validate can reject it while the loop falls back to the default.
type Interval struct {
	seconds int
	raw     string
	invalid bool
}

// Seconds builds a valid interval.
func Seconds(n int) Interval {
	return Interval{seconds: n}
}

// ParseInterval parses user input. Empty input yields the default.
func ParseInterval(s string) Interval {
	s = strings.TrimSpace(s)
	if s == "" {
		return Seconds(DefaultFrequencies)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Interval{raw: s, invalid: true}
	}
	return Seconds(n)
}

// Valid reports whether the interval parsed as an integer.
func (i Interval) Valid() bool { return !i.invalid }

// Int returns the parsed seconds, or DefaultFrequencies if the value was malformed.
func (i Interval) Int() int {
	if i.invalid {
		return DefaultFrequencies
	}
	return i.seconds
}

// Clamped returns the interval forced into [MinFrequencies, MaxFrequencies].
func (i Interval) Clamped() int {
	n := i.Int()
	if n < MinFrequencies {
		return MinFrequencies
	}
	if n > MaxFrequencies {
		return MaxFrequencies
	}
	return n
}

// String renders the interval the way it would be typed into a form field.
func (i Interval) String() string {
	if i.invalid {
		return i.raw
	}
	return strconv.Itoa(i.seconds)
}

// MarshalJSON writes a number, or the raw text when it never parsed.
func (i Interval) MarshalJSON() ([]byte, error) {
	if i.invalid {
		return json.Marshal(i.raw)
	}
	return []byte(strconv.Itoa(i.seconds)), nil
}

// UnmarshalJSON accepts a number, truncating any fraction, or an integer string.
// Anything else is kept as invalid.
func (i *Interval) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		if v, err := strconv.Atoi(n.String()); err == nil {
			*i = Seconds(v)
			return nil
		}
		// 60.0 and 60.5 both read as 60
		if f, err := n.Float64(); err == nil && math.Abs(f) < math.MaxInt32 {
			*i = Seconds(int(f))
			return nil
		}
		*i = Interval{raw: n.String(), invalid: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			*i = Interval{raw: s, invalid: true}
			return nil
		}
		*i = ParseInterval(s)
		return nil
	}
	*i = Interval{raw: string(b), invalid: true}
	return nil
}
