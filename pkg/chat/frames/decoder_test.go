package frames

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAll(t *testing.T, d *Decoder, stream string, chunkSize int) []string {
	t.Helper()
	var out []string
	for i := 0; i < len(stream); i += chunkSize {
		end := i + chunkSize
		if end > len(stream) {
			end = len(stream)
		}
		out = append(out, d.Feed([]byte(stream[i:end]))...)
	}
	if frame, ok := d.Flush(); ok {
		out = append(out, frame)
	}
	return out
}

func TestDecoderBasicFrames(t *testing.T) {
	d := NewDecoder()
	frames := d.Feed([]byte("data: {\"a\":1}\n\ndata: {\"b\":2}\n\n"))
	require.Equal(t, []string{`{"a":1}`, `{"b":2}`}, frames)
}

func TestDecoderFrameBoundaryIndependence(t *testing.T) {
	stream := "data: {\"event\":\"message_start\",\"message_id\":\"m1\"}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"héllo \"}}]}\n\n" +
		"raw text frame without prefix\n\n" +
		"data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n" +
		"data: [DONE]\n\n"

	whole := feedAll(t, NewDecoder(), stream, len(stream))
	require.NotEmpty(t, whole)

	for chunkSize := 1; chunkSize <= 7; chunkSize++ {
		got := feedAll(t, NewDecoder(), stream, chunkSize)
		assert.Equal(t, whole, got, "chunk size %d", chunkSize)
	}
}

func TestDecoderSplitUTF8(t *testing.T) {
	// é is two bytes; feed them in separate fragments
	frame := "data: caf\xc3\xa9\n\n"
	d := NewDecoder()
	var frames []string
	for i := 0; i < len(frame); i++ {
		frames = append(frames, d.Feed([]byte{frame[i]})...)
	}
	require.Equal(t, []string{"café"}, frames)
}

func TestDecoderDoneSentinelTerminates(t *testing.T) {
	d := NewDecoder()
	frames := d.Feed([]byte("data: one\n\ndata: [DONE]\n\ndata: ignored\n\n"))
	require.Equal(t, []string{"one"}, frames)
	assert.True(t, d.Done())

	assert.Nil(t, d.Feed([]byte("data: more\n\n")))
	_, ok := d.Flush()
	assert.False(t, ok)
}

func TestDecoderCRLFBoundaries(t *testing.T) {
	d := NewDecoder()
	frames := d.Feed([]byte("data: one\r\n\r\ndata: two\r\n\r\n"))
	require.Equal(t, []string{"one", "two"}, frames)
}

func TestDecoderFlushTrailingFrame(t *testing.T) {
	d := NewDecoder()
	require.Empty(t, d.Feed([]byte("data: unterminated tail")))
	frame, ok := d.Flush()
	require.True(t, ok)
	assert.Equal(t, "unterminated tail", frame)
}

func TestDecoderSkipsEmptyFrames(t *testing.T) {
	d := NewDecoder()
	frames := d.Feed([]byte("\n\n\n\ndata: x\n\n\n\n"))
	require.Equal(t, []string{"x"}, frames)
}

func TestDecodeStreamCleanEOF(t *testing.T) {
	var got []string
	err := DecodeStream(context.Background(), strings.NewReader("data: a\n\ndata: b"),
		func(frame string) error {
			got = append(got, frame)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

type failingReader struct {
	data string
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, errors.New("connection reset")
}

func TestDecodeStreamReadError(t *testing.T) {
	var got []string
	err := DecodeStream(context.Background(), &failingReader{data: "data: a\n\n"},
		func(frame string) error {
			got = append(got, frame)
			return nil
		})
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, got)
}

func TestDecodeStreamStopsOnSentinel(t *testing.T) {
	// reader would error if read past the sentinel
	r := io.MultiReader(strings.NewReader("data: a\n\ndata: [DONE]\n\n"), &failingReader{read: true})
	var got []string
	err := DecodeStream(context.Background(), r, func(frame string) error {
		got = append(got, frame)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)
}

func TestDecodeStreamCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := DecodeStream(ctx, strings.NewReader("data: a\n\n"), func(string) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
