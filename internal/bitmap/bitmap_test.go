package bitmap

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
)

func bm(values ...uint32) *roaring.Bitmap {
	return roaring.BitmapOf(values...)
}

func TestIntersect(t *testing.T) {
	a := bm(1, 2, 3, 5)
	b := bm(2, 3, 4)
	c := bm(3, 5)

	result := Intersect(a, b, c)
	assert.Equal(t, []uint32{3}, result.ToArray())

	// Inputs stay untouched.
	assert.Equal(t, []uint32{1, 2, 3, 5}, a.ToArray())
	assert.Equal(t, []uint32{2, 3, 4}, b.ToArray())
}

func TestIntersectEmptyInput(t *testing.T) {
	assert.Nil(t, Intersect())
}

func TestIntersectSingle(t *testing.T) {
	result := Intersect(bm(7, 9))
	assert.Equal(t, []uint32{7, 9}, result.ToArray())
}

func TestIntersectVecShortCircuits(t *testing.T) {
	// The accumulator is already empty after the second bitmap, so the third
	// is never looked at and the result must stay empty.
	result := IntersectVec([]*roaring.Bitmap{bm(1, 2), bm(3, 4), bm(1, 2)})
	assert.True(t, result.IsEmpty())
}

func TestIntersectVecNil(t *testing.T) {
	assert.Nil(t, IntersectVec(nil))
}

func TestUnion(t *testing.T) {
	a := bm(1, 2)
	b := bm(2, 3)

	result := Union(a, b)
	assert.Equal(t, []uint32{1, 2, 3}, result.ToArray())
	assert.Equal(t, []uint32{1, 2}, a.ToArray())
}

func TestUnionEmptyInput(t *testing.T) {
	assert.Nil(t, Union())
}
