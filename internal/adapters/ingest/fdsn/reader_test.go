package fdsn

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	perr "quakeingest/internal/platform/errors"
	"quakeingest/internal/platform/testkit"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, rd *Reader) ([]string, error) {
	t.Helper()
	var got []string
	for {
		b, err := rd.Next()
		if err != nil {
			return got, err
		}
		got = append(got, ids(b)...)
	}
}

func TestReader_StreamsInOrder(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	rd := NewReader(testkit.Body(headerLine, bodyLine, "", lastLine), WithLogger(&log))
	defer rd.Close()

	got, err := drain(t, rd)
	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"a1", "a2", "a3"}, got)

	st := rd.Stats()
	assert.Equal(t, 3, st.Fragments)
	assert.Equal(t, 3, st.Features)
	assert.Zero(t, st.Dropped)
	assert.Positive(t, st.Bytes)

	// exactly one sample line per response
	assert.Equal(t, 1, strings.Count(buf.String(), "fdsn: sample raw line"))

	// EOF is sticky
	_, err = rd.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_DropsMalformedAndContinues(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	var dropped []*ParseError
	rd := NewReader(
		testkit.Body(headerLine, `{"type":"Feature","id":`, bodyLine, lastLine),
		WithLogger(&log),
		OnDrop(func(pe *ParseError) { dropped = append(dropped, pe) }),
	)

	got, err := drain(t, rd)
	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"a1", "a2", "a3"}, got)
	assert.Equal(t, 1, rd.Stats().Dropped)
	require.Len(t, dropped, 1)
	assert.Equal(t, StateBody, dropped[0].State)
	testkit.MustContain(t, buf.String(), "dropped undecodable line")
}

func TestReader_EmptyBody(t *testing.T) {
	rd := NewReader(io.NopCloser(strings.NewReader("")))
	_, err := rd.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Zero(t, rd.Stats().Fragments)
}

type failingBody struct {
	r   io.Reader
	err error
}

func (f *failingBody) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if err == io.EOF {
		return n, f.err
	}
	return n, err
}
func (f *failingBody) Close() error { return nil }

func TestReader_ReadErrorIsTransport(t *testing.T) {
	body := &failingBody{r: strings.NewReader(headerLine + "\n"), err: errors.New("connection reset by peer")}
	rd := NewReader(body)

	b, err := rd.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, ids(b))

	_, err = rd.Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeTransport))
	assert.True(t, perr.Fatal(err))
}
