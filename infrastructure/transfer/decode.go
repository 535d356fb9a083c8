package transfer

import (
	"bufio"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// supportedEncodings is advertised when ACCEPT_ENCODING is set to "".
const supportedEncodings = "deflate, gzip, zstd"

type decodedBody struct {
	io.Reader
	closers []io.Closer
}

func (d *decodedBody) Close() error {
	var first error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

// decoderFunc wraps r with a decoder for one content coding.
type decoderFunc func(r io.Reader) (io.Reader, io.Closer, error)

var decoders = map[string]decoderFunc{
	"gzip":    newGzipReader,
	"x-gzip":  newGzipReader,
	"deflate": newDeflateReader,
	"zstd":    newZstdReader,
}

// decodeBody undoes the codings listed in a Content-Encoding header, last applied
// first. On failure every decoder already opened is closed.
func decodeBody(contentEncoding string, body io.Reader) (io.ReadCloser, error) {
	out := &decodedBody{Reader: body}
	if strings.TrimSpace(contentEncoding) == "" {
		return out, nil
	}

	codings := strings.Split(contentEncoding, ",")
	for i := len(codings) - 1; i >= 0; i-- {
		coding := strings.ToLower(strings.TrimSpace(codings[i]))
		if coding == "" || coding == "identity" {
			continue
		}
		decode, ok := decoders[coding]
		if !ok {
			_ = out.Close()
			return nil, newErrorf(BadContentEncoding, "unsupported content encoding %q", coding)
		}
		r, closer, err := decode(out.Reader)
		if err != nil {
			_ = out.Close()
			return nil, newError(BadContentEncoding, err)
		}
		out.Reader = r
		out.closers = append(out.closers, closer)
	}
	return out, nil
}

func newGzipReader(r io.Reader) (io.Reader, io.Closer, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	return zr, zr, nil
}

func newZstdReader(r io.Reader) (io.Reader, io.Closer, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	return dec, closerFunc(dec.Close), nil
}

// newDeflateReader accepts both zlib-wrapped and raw deflate streams; servers send
// either under the "deflate" coding.
func newDeflateReader(r io.Reader) (io.Reader, io.Closer, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(2)
	if err == nil && isZlibHeader(header[0], header[1]) {
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr, nil
	}
	fr := flate.NewReader(br)
	return fr, fr, nil
}

func isZlibHeader(cmf, flg byte) bool {
	return cmf&0x0f == 8 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}
