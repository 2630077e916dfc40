// Package bitmap provides set algebra helpers over roaring bitmaps.
//
// The index stores every commit axis and file-id axis as a compressed bitmap;
// these helpers are the only place intersection and union are implemented so
// the non-mutating contract is enforced in one spot.
package bitmap

import "github.com/RoaringBitmap/roaring/v2"

// Intersect returns the intersection of the given bitmaps without mutating
// any input. Returns nil when called with no bitmaps.
func Intersect(bitmaps ...*roaring.Bitmap) *roaring.Bitmap {
	if len(bitmaps) == 0 {
		return nil
	}

	result := bitmaps[0].Clone()
	for _, b := range bitmaps[1:] {
		result.And(b)
	}
	return result
}

// IntersectVec intersects a slice of bitmaps, short-circuiting as soon as the
// accumulator becomes empty. The slice itself is consumed; the bitmaps are
// not mutated. Returns nil for an empty slice.
func IntersectVec(bitmaps []*roaring.Bitmap) *roaring.Bitmap {
	if len(bitmaps) == 0 {
		return nil
	}

	result := bitmaps[0].Clone()
	for _, b := range bitmaps[1:] {
		if result.IsEmpty() {
			return result
		}
		result.And(b)
	}
	return result
}

// Union returns the union of the given bitmaps without mutating any input.
// Returns nil when called with no bitmaps.
func Union(bitmaps ...*roaring.Bitmap) *roaring.Bitmap {
	if len(bitmaps) == 0 {
		return nil
	}

	result := bitmaps[0].Clone()
	for _, b := range bitmaps[1:] {
		result.Or(b)
	}
	return result
}

// UnionVec unions a slice of bitmaps. Returns nil for an empty slice.
func UnionVec(bitmaps []*roaring.Bitmap) *roaring.Bitmap {
	return Union(bitmaps...)
}
