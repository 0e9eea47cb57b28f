package fdsn

import (
	"bufio"
	"errors"
	"io"

	perr "quakeingest/internal/platform/errors"
	"quakeingest/internal/platform/logger"
	pstrings "quakeingest/internal/platform/strings"
)

const (
	initialBufSize   = 256 * 1024
	maxScanTokenSize = 64 * 1024 * 1024 // a header line can hold many features
	sampleRawMax     = 2048             // max bytes of a raw line to log for the sample
)

// Reader pulls batches out of a response body, one line at a time
type Reader struct {
	body    io.ReadCloser
	sc      *bufio.Scanner
	ex      *Extractor
	log     *logger.Logger
	onDrop  func(*ParseError)
	stats   Stats
	err     error
	sampled bool // logs exactly one sample raw line per response
}

// ReaderOption customizes a Reader
type ReaderOption func(*Reader)

// WithLogger sets the logger used for dropped and sample lines
func WithLogger(l *logger.Logger) ReaderOption { return func(r *Reader) { r.log = l } }

// OnDrop registers a callback invoked for every undecodable line
func OnDrop(fn func(*ParseError)) ReaderOption { return func(r *Reader) { r.onDrop = fn } }

// NewReader wraps a response body
func NewReader(body io.ReadCloser, opts ...ReaderOption) *Reader {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, initialBufSize), maxScanTokenSize)
	r := &Reader{body: body, sc: sc, ex: NewExtractor()}
	for _, o := range opts {
		o(r)
	}
	if r.log == nil {
		r.log = logger.Named("fdsn")
	}
	return r
}

// Next returns the next non-empty batch; io.EOF when the body is exhausted.
// Undecodable lines are logged, counted and skipped. Any other error means the
// body could not be read to its end
func (rd *Reader) Next() (Batch, error) {
	if rd.err != nil {
		return Batch{}, rd.err
	}
	for {
		if !rd.sc.Scan() {
			rd.ex.Finish()
			if err := rd.sc.Err(); err != nil {
				if errors.Is(err, bufio.ErrTooLong) {
					rd.err = perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "response line exceeds %d bytes", maxScanTokenSize)
				} else {
					rd.err = perr.Wrap(err, perr.ErrorCodeTransport, "read response body")
				}
				return Batch{}, rd.err
			}
			rd.err = io.EOF
			return Batch{}, io.EOF
		}
		line := rd.sc.Bytes()
		rd.stats.Bytes += int64(len(line) + 1) // include newline
		if len(line) == 0 {
			continue
		}
		rd.stats.Fragments++
		rd.sample(line)

		st := rd.ex.State()
		b, err := rd.ex.Feed(line)
		if err != nil {
			var pe *ParseError
			if !errors.As(err, &pe) {
				rd.err = err
				return Batch{}, err
			}
			rd.stats.Dropped++
			rd.log.Debug().
				Err(pe.Err).
				Stringer("state", st).
				Int("fragment", rd.stats.Fragments).
				Str("raw", pe.Fragment).
				Msg("fdsn: dropped undecodable line")
			if rd.onDrop != nil {
				rd.onDrop(pe)
			}
			continue
		}
		if b.Empty() {
			continue
		}
		rd.stats.Features += len(b.Features)
		return b, nil
	}
}

func (rd *Reader) sample(line []byte) {
	if rd.sampled {
		return
	}
	rd.sampled = true
	rd.log.Debug().
		Int("line_bytes", len(line)).
		Str("sample_raw", pstrings.Truncate(string(line), sampleRawMax)).
		Msg("fdsn: sample raw line")
}

// Close closes the underlying body
func (rd *Reader) Close() error {
	if rd.body == nil {
		return nil
	}
	return rd.body.Close()
}

// Stats returns what has been consumed so far
func (rd *Reader) Stats() Stats { return rd.stats }
