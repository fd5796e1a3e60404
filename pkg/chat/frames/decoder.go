package frames

import (
	"bytes"
	"context"
	"io"
	"strings"
)

// DoneSentinel is the frame body the backend sends to terminate a stream.
const DoneSentinel = "[DONE]"

const dataPrefix = "data:"

// Decoder reassembles a chunk-boundary-agnostic byte stream into protocol
// frames. Fragments may be split at arbitrary byte positions, including in
// the middle of multi-byte UTF-8 sequences; the decoder only ever cuts the
// buffer at a blank-line boundary, so partial runes stay buffered until the
// rest of them arrives.
//
// Usage:
//  1. Call Feed for every fragment read from the transport; it returns the
//     frames completed by that fragment, in order.
//  2. When the transport signals end-of-input, call Flush to recover a
//     trailing unterminated frame, if any.
//
// Once the [DONE] sentinel has been seen, Done reports true and all further
// input is discarded. The decoder itself never fails.
type Decoder struct {
	buf  bytes.Buffer
	done bool
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Done reports whether the end-of-stream sentinel has been decoded.
func (d *Decoder) Done() bool {
	return d.done
}

// Feed appends a raw fragment and returns all frames it completed.
func (d *Decoder) Feed(p []byte) []string {
	if d.done {
		return nil
	}
	d.buf.Write(p)

	var out []string
	for {
		body, rest, ok := splitFrame(d.buf.Bytes())
		if !ok {
			break
		}
		// cut the consumed bytes from the front of the buffer
		remaining := make([]byte, len(rest))
		copy(remaining, rest)
		d.buf.Reset()
		d.buf.Write(remaining)

		frame := trimFrame(body)
		if frame == "" {
			continue
		}
		if frame == DoneSentinel {
			d.done = true
			return out
		}
		out = append(out, frame)
	}
	return out
}

// Flush returns the frame left in the buffer at end-of-input, if non-empty.
func (d *Decoder) Flush() (string, bool) {
	if d.done {
		return "", false
	}
	frame := trimFrame(d.buf.Bytes())
	d.buf.Reset()
	if frame == "" || frame == DoneSentinel {
		if frame == DoneSentinel {
			d.done = true
		}
		return "", false
	}
	return frame, true
}

// splitFrame looks for the earliest blank-line boundary (LF LF or CRLF CRLF)
// and splits the buffer there.
func splitFrame(b []byte) (body, rest []byte, ok bool) {
	idxLF := bytes.Index(b, []byte("\n\n"))
	idxCRLF := bytes.Index(b, []byte("\r\n\r\n"))

	switch {
	case idxLF < 0 && idxCRLF < 0:
		return nil, nil, false
	case idxCRLF >= 0 && (idxLF < 0 || idxCRLF < idxLF):
		return b[:idxCRLF], b[idxCRLF+4:], true
	default:
		return b[:idxLF], b[idxLF+2:], true
	}
}

func trimFrame(b []byte) string {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, dataPrefix) {
		s = strings.TrimSpace(strings.TrimPrefix(s, dataPrefix))
	}
	return s
}

// DecodeStream drives a Decoder over r, invoking fn for every frame in
// arrival order. It returns nil when the sentinel is decoded or the reader
// reaches a clean EOF (the trailing buffer is flushed as one last frame),
// and the read error otherwise. The context is checked between reads so a
// cancelled caller stops consuming promptly.
func DecodeStream(ctx context.Context, r io.Reader, fn func(frame string) error) error {
	d := NewDecoder()
	buf := make([]byte, 4096)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			for _, frame := range d.Feed(buf[:n]) {
				if err := fn(frame); err != nil {
					return err
				}
			}
			if d.Done() {
				return nil
			}
		}
		if err == io.EOF {
			if frame, ok := d.Flush(); ok {
				return fn(frame)
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}
