package vector

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/tsawler/drawpipe/model"
)

// ErrFormatViolation is matched by every *FormatViolationError.
var ErrFormatViolation = errors.New("unhandled drawing item")

// FormatViolationError names a draw item the interpreter cannot replay.
type FormatViolationError struct {
	Page int // 1-based
	Path int // index into the page's DrawPaths
	Item int // index into the path's items
	Tag  string
}

func (e *FormatViolationError) Error() string {
	return fmt.Sprintf("page %d, path %d, item %d: unhandled drawing item %q", e.Page, e.Path, e.Item, e.Tag)
}

func (e *FormatViolationError) Unwrap() error { return ErrFormatViolation }

// Status is the outcome of interpreting one page.
type Status int

const (
	StatusOK Status = iota
	StatusFormatViolation
	StatusWriteFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFormatViolation:
		return "format_violation"
	case StatusWriteFailed:
		return "write_failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Result reports what happened to a page. File is set only when a vector
// file was written; Violation only for StatusFormatViolation.
type Result struct {
	Status    Status
	File      string
	Paths     int
	Violation *FormatViolationError
	Err       error
}

// Error returns the failure carried by the result, or nil.
func (r Result) Error() error {
	switch r.Status {
	case StatusFormatViolation:
		return r.Violation
	case StatusWriteFailed:
		return r.Err
	}
	return nil
}

// Validate returns the first malformed item of paths.
func Validate(page model.PageInfo, paths []model.DrawPath) *FormatViolationError {
	for i, p := range paths {
		for j, item := range p.Items {
			if !item.WellFormed() {
				return &FormatViolationError{Page: page.Number(), Path: i, Item: j, Tag: string(item.Kind)}
			}
		}
	}
	return nil
}

// Interpret replays paths onto canvas in order: each path's items, then
// its normalized style, and a single Commit at the end. Nothing is drawn
// when any item is malformed.
func Interpret(page model.PageInfo, paths []model.DrawPath, canvas Canvas) Result {
	if v := Validate(page, paths); v != nil {
		return Result{Status: StatusFormatViolation, Violation: v}
	}

	for _, p := range paths {
		for _, item := range p.Items {
			switch item.Kind {
			case model.KindLine:
				canvas.Line(item.Points[0], item.Points[1])
			case model.KindRect:
				canvas.Rect(*item.Rect)
			case model.KindQuad:
				canvas.Quad(item.Quad())
			case model.KindCurve:
				canvas.Curve(item.Points[0], item.Points[1], item.Points[2], item.Points[3])
			}
		}
		canvas.Finish(NormalizeStyle(p.Style))
	}

	if err := canvas.Commit(); err != nil {
		return Result{Status: StatusWriteFailed, Paths: len(paths), Err: err}
	}
	return Result{Status: StatusOK, Paths: len(paths)}
}

// PagePath is where RenderPage writes page n (1-based) under outputDir.
func PagePath(outputDir string, n int) string {
	return filepath.Join(outputDir, "vectors", fmt.Sprintf("page_%d.pdf", n))
}

// RenderPage rebuilds a page's paths as vectors/page_<n>.pdf. On a format
// violation no file is created.
func RenderPage(page model.PageInfo, paths []model.DrawPath, outputDir string) Result {
	file := PagePath(outputDir, page.Number())
	res := Interpret(page, paths, NewPDFCanvas(page.Width, page.Height, file))
	if res.Status == StatusOK {
		res.File = file
	}
	return res
}
