// Package fdsn streams earthquake events from an FDSN event web service
// (format=geojson) without buffering the whole response
//
// Design choices:
// - The service writes one feature per line, so the body is consumed with a
//   bufio.Scanner and each line is decoded on its own. A line holding several
//   comma separated features yields all of them.
// - The first line carries the collection header and is repaired into a
//   complete document before decoding; the last line carries the bbox trailer,
//   which is cut off at the `],"bbox"` boundary.
// - A line that cannot be decoded is counted and skipped. Read errors on the
//   body are returned to the caller, they mean the response is incomplete.
package fdsn
