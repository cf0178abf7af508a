package opus

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// FrameSource yields raw Opus frames until io.EOF.
type FrameSource interface {
	ReadFrame() ([]byte, error)
}

// FrameReader reads length-prefixed Opus frames from an io.Reader.
type FrameReader struct {
	r io.Reader
}

// NewFrameReader returns a new FrameReader that reads from r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// ReadFrame reads and returns the next raw Opus frame.
// Returns io.EOF when there are no more frames.
func (f *FrameReader) ReadFrame() ([]byte, error) {
	var size uint16
	if err := binary.Read(f.r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}

	frame := make([]byte, size)
	if _, err := io.ReadFull(f.r, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// FrameWriter writes length-prefixed Opus frames to an io.Writer.
type FrameWriter struct {
	w io.Writer
}

func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

func (f *FrameWriter) WriteFrame(frame []byte) error {
	if len(frame) > math.MaxUint16 {
		return fmt.Errorf("frame of %d bytes exceeds the length prefix", len(frame))
	}

	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(frame)))
	if _, err := f.w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := f.w.Write(frame)
	return err
}

// Copy drains src into dst and returns the number of frames written.
// A clean end of src is not an error.
func Copy(dst *FrameWriter, src FrameSource) (int, error) {
	n := 0
	for {
		frame, err := src.ReadFrame()
		if err != nil {
			if isEndOfStream(err) {
				return n, nil
			}
			return n, err
		}
		if err := dst.WriteFrame(frame); err != nil {
			return n, err
		}
		n++
	}
}

var _ FrameSource = &FrameReader{}
