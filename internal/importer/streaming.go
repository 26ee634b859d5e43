package importer

// streaming.go wraps the uploaded file stream for decoding.
//
// Order files arrive from a variety of upstream exports; Windows tools
// commonly prefix a UTF-8 BOM, which would corrupt the first line's
// positional offsets. Nothing here buffers more than a few bytes, so
// memory stays bounded regardless of file size.

import "io"

// BOMSkippingReader wraps an io.Reader and skips a leading UTF-8 BOM
// (0xEF 0xBB 0xBF) if present.
type BOMSkippingReader struct {
	r       io.Reader
	checked bool
	buf     []byte // bytes consumed during BOM detection still owed to the caller
}

// NewBOMSkippingReader creates a BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{r: r}
}

// Read implements io.Reader. The first call inspects up to three bytes
// for a BOM; everything that is not a BOM is handed back to the caller.
func (b *BOMSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true

		head := make([]byte, 3)
		n, err := io.ReadFull(b.r, head)
		if !(n == 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF) {
			b.buf = head[:n]
		}
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
	}

	if len(b.buf) > 0 {
		n := copy(p, b.buf)
		b.buf = b.buf[n:]
		return n, nil
	}

	return b.r.Read(p)
}

// CountingReader wraps an io.Reader and tracks bytes consumed, used for
// progress logging on large files.
type CountingReader struct {
	r io.Reader
	n int64
}

// NewCountingReader creates a counting reader.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{r: r}
}

// Read implements io.Reader.
func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// BytesRead returns the total bytes consumed so far.
func (c *CountingReader) BytesRead() int64 { return c.n }
