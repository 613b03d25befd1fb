// Package filters implements the PDF stream filters needed to read page
// content, object streams, xref streams and image data.
//
// Decode dispatches on the filter name, accepting both the full names used
// in stream dictionaries and the abbreviations used by inline images:
//
//	data, err := filters.Decode("FlateDecode", raw, filters.Params{"Predictor": 12, "Columns": 5})
//
// Image codecs that are not byte-to-byte transformations (DCTDecode,
// JPXDecode) are passed through unchanged; the reader hands DCT data to
// image/jpeg.
package filters
