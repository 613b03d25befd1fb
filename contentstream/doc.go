// Package contentstream splits PDF content streams into operations.
//
//	ops, err := contentstream.NewParser(data).Parse()
//	for _, op := range ops {
//	    fmt.Println(op.Operator, op.Operands)
//	}
//
// Tokenization is shared with the file-level object parser in core, so
// operands are ordinary core objects (numbers, strings, names, arrays,
// dictionaries). Operator names may contain digits and quotes (d0, d1,
// ', "). Inline images (BI ... ID ... EI) are returned as one "BI"
// operation carrying the expanded image dictionary and the raw data.
package contentstream
