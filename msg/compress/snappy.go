package compress

import (
	"io"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// NewSnappyCompressor creates a new compressor using the snappy framing
// format.
func NewSnappyCompressor() Compressor {
	return &snappyCompressor{}
}

type snappyCompressor struct{}

func (c *snappyCompressor) ID() uint8 {
	return 1
}

func (c *snappyCompressor) Name() string {
	return "snappy"
}

func (c *snappyCompressor) Compress(in []byte, w io.Writer) error {
	snappyWriter := snappy.NewBufferedWriter(w)
	if _, err := snappyWriter.Write(in); err != nil {
		snappyWriter.Close()
		return errors.Wrap(err, "failed compressing using snappy")
	}
	return snappyWriter.Close()
}

func (c *snappyCompressor) Decompress(r io.Reader, b []byte) error {
	snappyReader := snappy.NewReader(r)
	if _, err := io.ReadFull(snappyReader, b); err != nil {
		return errors.Wrap(err, "failed decompressing using snappy")
	}
	return nil
}
