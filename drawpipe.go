// Package drawpipe extracts technical drawings from PDF files.
//
// Every selected page goes down two independent paths. The vector path
// rebuilds the page's painted paths as a standalone single-page PDF under
// vectors/. The raster path renders the page, finds bounded drawing
// regions, cleans each one to black and white and exports it under
// drawings/, recording every region in drawings_info.json.
//
// Basic usage:
//
//	summary, err := drawpipe.Open("plans.pdf").OutputDir("out").Run(ctx)
//	if err != nil {
//	    // handle error
//	}
//	fmt.Println(summary.RegionsFound, "drawings")
//
// With options:
//
//	summary, err := drawpipe.Open("plans.pdf").
//	    OutputDir("out").
//	    DPI(600).
//	    Pages(2, 3).
//	    Formats("tif").
//	    Workbook().
//	    Run(ctx)
//
// For full control build a Config and use New. The reader, vector,
// raster, detect, clean and export packages can also be used on their
// own.
package drawpipe

// Open returns an Extractor for the PDF at filename, configured from
// DefaultConfig. Nothing is read until a terminal operation such as Run.
//
// Example:
//
//	summary, err := drawpipe.Open("document.pdf").Run(ctx)
func Open(filename string) *Extractor {
	return &Extractor{
		filename: filename,
		config:   DefaultConfig(),
	}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	count := drawpipe.Must(drawpipe.Open("document.pdf").PageCount())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
