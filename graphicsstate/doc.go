// Package graphicsstate interprets content stream operators that affect
// drawing.
//
// GraphicsState tracks the CTM, line attributes (width, cap, join, dash),
// stroke and fill colors and constant alpha, with the q/Q stack. Path
// accumulates path construction operators in user space.
//
// A Processor walks a page's operations, recursing into Form XObjects, and
// hands every painted path and image to a Handler. Two handlers exist in
// this module:
//
//   - GraphicsExtractor, which enumerates the page's DrawPaths in paint
//     order with page-space coordinates:
//
//     ge := graphicsstate.NewGraphicsExtractor(doc)
//     err := ge.ExtractFromBytes(content, resources, page.Matrix)
//     paths := ge.Paths()
//
//   - the native rasterizer in package raster, which runs the same
//     Processor with a device matrix.
//
// Text, shading and clipping operators are accepted but ignored.
package graphicsstate
