// Package reader opens PDF files and resolves their objects.
//
// The whole file is read into memory. Cross-reference tables, xref streams
// and incremental updates are merged; when they are missing or broken the
// table is rebuilt by scanning the file for object headers (see
// [Reader.Repaired]).
//
//	doc, err := reader.Open("drawing.pdf")
//	if err != nil {
//	    return err
//	}
//	defer doc.Close()
//
//	n, _ := doc.PageCount()
//	info, _ := doc.PageInfo(0)
//	paths, err := doc.DrawPaths(0)
//
// # Object Resolution
//
//   - GetObject(objNum) - load object by number, including objects stored
//     in object streams
//   - ResolveReference(ref) - resolve an IndirectRef
//   - Resolve(obj) - resolve if indirect, otherwise return as-is
//   - ResolveDeep(obj) - recursively resolve all references
//
// # Page Content
//
// RunPage feeds a page's content streams through a
// graphicsstate.Processor; DrawPaths uses it to enumerate the page's
// painted paths. LoadImage decodes image XObjects and inline images for
// rendering.
//
// A Reader caches objects and is not safe for concurrent use.
package reader
