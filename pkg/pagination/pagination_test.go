package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -4: DefaultLimit, 10: 10, MaxLimit: MaxLimit, 500: MaxLimit}
	for in, want := range cases {
		assert.Equal(t, want, Clamp(in), "Clamp(%d)", in)
	}
	assert.Equal(t, 11, Probe(10))
}

func TestDecode(t *testing.T) {
	c, err := Decode("  ", "")
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = Decode(Cursor{AfterID: 42, Filter: "QUOTED"}.Encode(), "QUOTED")
	require.NoError(t, err)
	assert.Equal(t, uint(42), c.AfterID)

	_, err = Decode(Cursor{AfterID: 42, Filter: "QUOTED"}.Encode(), "")
	assert.ErrorIs(t, err, ErrCursorFilter)

	for _, raw := range []string{"!!!", "bnVsbA", Cursor{}.Encode()} {
		_, err := Decode(raw, "")
		assert.ErrorIs(t, err, ErrMalformedCursor, raw)
	}
}

func TestCut(t *testing.T) {
	ids := func(v uint) uint { return v }

	page, next := Cut([]uint{9, 8, 7}, 2, "", ids)
	assert.Equal(t, []uint{9, 8}, page)
	c, err := Decode(next, "")
	require.NoError(t, err)
	assert.Equal(t, uint(8), c.AfterID)

	page, next = Cut([]uint{9, 8}, 2, "", ids)
	assert.Len(t, page, 2)
	assert.Empty(t, next)
}
