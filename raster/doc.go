// Package raster renders PDF pages to opaque bitmaps for region detection.
//
// Two backends implement Rasterizer: Native, a pure Go renderer driven by
// the graphicsstate content processor, and Poppler, which shells out to
// pdftoppm. New chooses one per run; Render wraps any backend so that
// failures and panics surface as *RenderError.
package raster
