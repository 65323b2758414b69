package errlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_EvictsOldest(t *testing.T) {
	r := NewRing[int](3)
	assert.Empty(t, r.Items())
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}
	assert.Equal(t, []int{3, 4, 5}, r.Items())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 3, r.Cap())
}

func TestRing_PartiallyFilled(t *testing.T) {
	r := NewRing[string](4)
	r.Push("a")
	r.Push("b")
	assert.Equal(t, []string{"a", "b"}, r.Items())
}

func TestRing_MinimumCapacity(t *testing.T) {
	r := NewRing[string](0)
	r.Push("a")
	r.Push("b")
	assert.Equal(t, []string{"b"}, r.Items())
}
