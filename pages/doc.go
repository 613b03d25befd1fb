// Package pages walks the PDF page tree and exposes per-page geometry.
//
// [PageTree] flattens the tree into document order, carrying the
// inheritable attributes (MediaBox, CropBox, Resources, Rotate) down from
// every ancestor and skipping cycles:
//
//	tree := pages.NewPageTree(pagesDict, resolver)
//	page, _ := tree.GetPage(0) // 0-indexed
//	info := page.Info()
//
// [Page.Matrix] maps PDF user space into page space: the origin at the
// top-left of the visible (crop) box after /Rotate, y growing downward,
// one unit per point. Both the vector and raster paths draw through it.
//
// The [ObjectResolver] interface keeps this package independent of the
// reader that owns the object table.
package pages
