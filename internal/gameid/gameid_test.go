package gameid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokernight/pokernight/internal/randutil"
)

type randAdapter struct{ rng interface{ IntN(int) int } }

func (r randAdapter) Intn(n int) int { return r.rng.IntN(n) }

func TestCodeShape(t *testing.T) {
	t.Parallel()

	g := NewGenerator(randAdapter{randutil.New(1)})
	code := g.Code()
	require.NoError(t, ValidateCode(code))
	assert.Len(t, code, CodeLength)
}

func TestCodeDeterministicPerSeed(t *testing.T) {
	t.Parallel()

	a := NewGenerator(randAdapter{randutil.New(5)}).Code()
	b := NewGenerator(randAdapter{randutil.New(5)}).Code()
	assert.Equal(t, a, b)
}

func TestPlayerIDShape(t *testing.T) {
	t.Parallel()

	id := NewPlayerID()
	assert.Len(t, id, 26)
	for i := 0; i < len(id); i++ {
		assert.Contains(t, alphabet, string(id[i]))
	}
}

func TestPlayerIDsAreUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewPlayerID()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestValidateCode(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateCode("ABC123"))
	assert.Error(t, ValidateCode("abc123"))
	assert.Error(t, ValidateCode("ABC12"))
	assert.Error(t, ValidateCode("ABC12!"))
}
