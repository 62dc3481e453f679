package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		account  string
		password string
		interval Interval
		wantOK   bool
		wantMsg  string
	}{
		{"valid", "20234227", "secret", Seconds(10), true, ""},
		{"empty password accepted", "20234227", "", Seconds(10), true, ""},
		{"empty account", "", "p", Seconds(10), false, errAccountEmpty},
		{"blank account", "   ", "p", Seconds(10), false, errAccountEmpty},
		{"lower bound", "a", "", Seconds(5), true, ""},
		{"upper bound", "a", "", Seconds(3600), true, ""},
		{"below range", "a", "", Seconds(4), false, errIntervalRange},
		{"above range", "a", "", Seconds(3601), false, errIntervalRange},
		{"non numeric", "a", "", ParseInterval("abc"), false, errIntervalNotDigit},
		{"both problems", "", "", Seconds(1), false, errAccountEmpty + "；" + errIntervalRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Login.Account = tt.account
			cfg.Login.Password = tt.password
			cfg.Daemon.Frequencies = tt.interval

			ok, msg := Validate(cfg)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestInterval(t *testing.T) {
	assert.Equal(t, DefaultFrequencies, ParseInterval("").Int())
	assert.Equal(t, 30, ParseInterval(" 30 ").Int())
	assert.Equal(t, MinFrequencies, Seconds(1).Clamped())
	assert.Equal(t, MaxFrequencies, Seconds(99999).Clamped())
	assert.Equal(t, DefaultFrequencies, ParseInterval("x").Clamped())
	assert.Equal(t, "x", ParseInterval("x").String())
}
