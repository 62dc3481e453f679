package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/netmon/internal/domain"
)

func TestCandidates(t *testing.T) {
	fallbacks := []string{"//a", "//b"}

	assert.Equal(t, fallbacks, Candidates("", fallbacks))
	assert.Equal(t, []string{"//x"}, Candidates("//x", fallbacks))
}

func TestFirstMatch(t *testing.T) {
	tests := []struct {
		name       string
		present    []string
		candidates []string
		wantXPath  string
		wantErr    error
		wantLookup []string
	}{
		{
			name:       "first wins",
			present:    []string{"//a", "//b"},
			candidates: []string{"//a", "//b"},
			wantXPath:  "//a",
			wantLookup: []string{"//a"},
		},
		{
			name:       "falls through to later candidate",
			present:    []string{"//c"},
			candidates: []string{"//a", "//b", "//c"},
			wantXPath:  "//c",
			wantLookup: []string{"//a", "//b", "//c"},
		},
		{
			name:       "empty entries skipped",
			present:    []string{"//b"},
			candidates: []string{"", "//b"},
			wantXPath:  "//b",
			wantLookup: []string{"//b"},
		},
		{
			name:       "nothing matches returns last error",
			candidates: []string{"//a", "//b"},
			wantErr:    domain.ErrElementNotFound,
			wantLookup: []string{"//a", "//b"},
		},
		{
			name:       "only empty entries",
			candidates: []string{"", ""},
			wantErr:    domain.ErrNoLocator,
		},
		{
			name:    "no candidates",
			wantErr: domain.ErrNoLocator,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newMockBrowser()
			for _, xp := range tt.present {
				b.with(xp, xp, "")
			}

			el, xp, err := FirstMatch(context.Background(), b, tt.candidates)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, el)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantXPath, xp)
				assert.Same(t, b.elements[tt.wantXPath], el)
			}
			assert.Equal(t, tt.wantLookup, b.lookups)
		})
	}
}

func TestFirstMatch_LastErrorIsReported(t *testing.T) {
	b := newMockBrowser()
	b.findErrs["//b"] = errStale

	_, _, err := FirstMatch(context.Background(), b, []string{"//a", "//b"})
	assert.ErrorIs(t, err, errStale)
}

func TestFirstMatch_CancelledContext(t *testing.T) {
	b := newMockBrowser()
	b.with("//a", "a", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := FirstMatch(ctx, b, []string{"//a"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, b.lookups)
}
