package compress

import "io"

// Compressor handles compressing and decompressing bytes.
type Compressor interface {
	// ID is the wire identifier of the compressor.
	ID() uint8
	// Name is the negotiated name of the compressor.
	Name() string
	// Compress compresses the bytes and writes them to the writer.
	Compress([]byte, io.Writer) error
	// Decompress reads from the reader until the bytes are filled.
	Decompress(io.Reader, []byte) error
}

var registry = []Compressor{
	NewSnappyCompressor(),
	NewZLibCompressor(),
}

// Lookup finds a registered compressor by its wire identifier.
func Lookup(id uint8) (Compressor, bool) {
	for _, c := range registry {
		if c.ID() == id {
			return c, true
		}
	}
	return nil, false
}

// ByName finds a registered compressor by its negotiated name.
func ByName(name string) (Compressor, bool) {
	for _, c := range registry {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// Negotiate picks the first compressor the client offers that the server
// also advertises.
func Negotiate(offered, advertised []string) (Compressor, bool) {
	for _, name := range offered {
		for _, adv := range advertised {
			if name != adv {
				continue
			}
			if c, ok := ByName(name); ok {
				return c, true
			}
		}
	}
	return nil, false
}
