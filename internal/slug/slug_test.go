package slug

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Visa Guide 2024", "visa-guide-2024"},
		{"  Study   Abroad:  What's New? ", "study-abroad-whats-new"},
		{"Étude à Paris", "etude-a-paris"},
		{"H-1B / L-1 visas", "h-1b-l-1-visas"},
		{"snake_case_title", "snake-case-title"},
		{"---leading and trailing---", "leading-and-trailing"},
		{"日本 visa", "visa"},
		{"!!!", Fallback},
		{"", Fallback},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Make(tt.title))
		})
	}
}

func TestMakeTruncates(t *testing.T) {
	s := Make(strings.Repeat("word ", 100))
	assert.LessOrEqual(t, len(s), MaxLength)
	assert.False(t, strings.HasSuffix(s, "-"))
}

func TestWithSuffix(t *testing.T) {
	assert.Equal(t, "visa-guide-2024-2", WithSuffix("visa-guide-2024", 2))

	long := strings.Repeat("a", MaxLength)
	got := WithSuffix(long, 12)
	assert.Len(t, got, MaxLength)
	assert.True(t, strings.HasSuffix(got, "-12"))
}

func TestUnique(t *testing.T) {
	taken := map[string]bool{"visa-guide": true, "visa-guide-2": true}
	exists := func(_ context.Context, c string) (bool, error) { return taken[c], nil }

	got, err := Unique(context.Background(), "visa-guide", exists, 10)
	require.NoError(t, err)
	assert.Equal(t, "visa-guide-3", got)

	got, err = Unique(context.Background(), "fresh", exists, 10)
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
}

func TestUniqueFallsBackPastAttempts(t *testing.T) {
	always := func(context.Context, string) (bool, error) { return true, nil }
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		got, err := Unique(context.Background(), "visa-guide", always, 3)
		require.NoError(t, err)
		assert.Regexp(t, `^visa-guide-[0-9a-f]{8}$`, got)
		assert.False(t, seen[got], "duplicate slug %s", got)
		seen[got] = true
	}

	long := strings.Repeat("b", MaxLength)
	got, err := Unique(context.Background(), long, always, 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(got), MaxLength)
}

func TestUniquePropagatesLookupErrors(t *testing.T) {
	boom := errors.New("store down")
	failing := func(context.Context, string) (bool, error) { return false, boom }
	_, err := Unique(context.Background(), "x", failing, 3)
	assert.ErrorIs(t, err, boom)
}
