package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderedKeyComparator(t *testing.T) {
	var asc OrderedKeyComparator[int] = AscComparator[int]
	var desc OrderedKeyComparator[int] = DescComparator[int]

	assert.Equal(t, int64(0), asc(3, 3))
	assert.Equal(t, int64(-1), asc(-5, 3))
	assert.Equal(t, int64(1), asc(3, -5))

	assert.Equal(t, int64(0), desc(3, 3))
	assert.Equal(t, int64(1), desc(-5, 3))
	assert.Equal(t, int64(-1), desc(3, -5))

	assert.Equal(t, int64(-1), AscComparator[string]("abc", "abd"))
	assert.Equal(t, int64(1), AscComparator[float64](2.5, -0.5))
}
