// Package vector rebuilds a page's recorded drawing paths as a standalone
// single-page vector PDF.
//
// NormalizeStyle bounds a recorded style; Interpret replays paths onto a
// Canvas in source order and refuses the whole page when any draw item is
// malformed. PDFCanvas writes the page with gofpdf and RecordingCanvas
// keeps the calls for inspection:
//
//	paths, _ := r.DrawPaths(0)
//	res := vector.RenderPage(info, paths, "out")
//	if res.Status == vector.StatusFormatViolation {
//		log.Print(res.Violation)
//	}
package vector
