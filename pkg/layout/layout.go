// Package layout holds the geometry of the converter: where recognized words
// go on a PDF page, and how recognized lines are reflowed into paragraphs on
// fresh text pages.
//
// All coordinates produced here are PDF points with the origin at the
// bottom-left of the page. Drawing code that works top-down converts with
// pageHeight - y.
//
// Placement converts word boxes measured in pixels at the rasterization DPI:
//
//	x_pt = left_px * 72 / dpi
//	y_pt = page_height_pt - (top_px + height_px) * 72 / dpi
//
// and estimates a font size from the box height, clamped to a readable
// range. Consecutive words on one visual line are merged into a single run
// when the gap between them is small.
//
// Reflow groups lines into paragraphs, tags short upper-case paragraphs as
// headings, word-wraps them by rendered width and breaks pages when the text
// reaches the bottom margin.
package layout
