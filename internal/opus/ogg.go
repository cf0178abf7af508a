package opus

import (
	"bytes"
	"errors"
	"io"

	"github.com/jonas747/ogg"
)

var (
	opusHead = []byte("OpusHead")
	opusTags = []byte("OpusTags")
)

// OggReader extracts Opus frames from an Ogg stream such as the output of
// `ffmpeg -f opus`. The identification and comment headers are skipped.
type OggReader struct {
	decoder *ogg.PacketDecoder
}

func NewOggReader(r io.Reader) *OggReader {
	return &OggReader{decoder: ogg.NewPacketDecoder(ogg.NewDecoder(r))}
}

func (o *OggReader) ReadFrame() ([]byte, error) {
	for {
		packet, _, err := o.decoder.Decode()
		if err != nil {
			return nil, err
		}
		if len(packet) == 0 || bytes.HasPrefix(packet, opusHead) || bytes.HasPrefix(packet, opusTags) {
			continue
		}
		return append([]byte(nil), packet...), nil
	}
}

func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

var _ FrameSource = &OggReader{}
