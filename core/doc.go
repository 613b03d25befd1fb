// Package core provides the PDF object model and low-level parsing.
//
// It covers the eight basic object types ([Null], [Bool], [Int], [Real],
// [String], [Name], [Array], [Dict]) plus [Stream] and [IndirectRef], a
// [Lexer] shared with the content stream parser, a [Parser] for direct and
// indirect objects, cross-reference sections in both table and stream form
// ([XRefParser]), and compressed object streams ([ObjectStream]).
//
// All parsing works on a byte slice holding the whole file, so random
// access by xref offset is a slice operation.
//
// Stream data is decoded with [Stream.Decode], which applies the filter
// chain through internal/filters. Image codec filters (DCTDecode,
// JPXDecode) are left encoded; [Stream.ImageCodec] reports them.
package core
