// Package model holds the value types shared by both extraction paths.
//
// Geometry ([Point], [Rect], [Quad], [Matrix]) is expressed in page space:
// PDF points with the origin at the top-left corner and y growing down.
// [PageInfo] carries the matrix from PDF user space into that space.
//
// A [DrawPath] is an ordered list of [DrawItem] primitives (line,
// rectangle, quad, cubic curve) with the [RawStyle] it was painted with.
// RawStyle keeps every field optional so that absent or malformed values
// survive until normalization, including when read back from a JSON dump.
//
// A [Region] is a detected drawing box on a rendered page.
package model
