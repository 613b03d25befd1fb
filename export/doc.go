// Package export writes pipeline results under an output directory: the
// rendered page, every cleaned region in the configured formats, and the
// drawings_info manifest as JSON and optionally as an Excel workbook.
package export
