package config

import (
	"strings"
)

// Validation messages shown to the user.
const (
	errAccountEmpty     = "账号不能为空"
	errIntervalRange    = "检测间隔必须在 5-3600 秒之间"
	errIntervalNotDigit = "检测间隔必须是有效的数字"
)

// Validate checks the configuration and returns (ok, message). Problems are
// joined with a full-width semicolon. The password may be empty: some
// networks do not require one.
func Validate(cfg Config) (bool, string) {
	var errs []string

	if strings.TrimSpace(cfg.Login.Account) == "" {
		errs = append(errs, errAccountEmpty)
	}

	freq := cfg.Daemon.Frequencies
	if !freq.Valid() {
		errs = append(errs, errIntervalNotDigit)
	} else if n := freq.Int(); n < MinFrequencies || n > MaxFrequencies {
		errs = append(errs, errIntervalRange)
	}

	return len(errs) == 0, strings.Join(errs, "；")
}
