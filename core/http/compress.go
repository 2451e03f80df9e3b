package http

import (
	"bytes"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// GzipMinSize is the smallest body worth compressing.
const GzipMinSize = 1024

var gzipWriters = sync.Pool{
	New: func() any {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

// Gzip returns a copy of r with a gzip-encoded body. r itself is untouched.
func (r *Response) Gzip() (*Response, error) {
	var buf bytes.Buffer
	buf.Grow(len(r.Body) / 2)

	zw := gzipWriters.Get().(*gzip.Writer)
	defer gzipWriters.Put(zw)
	zw.Reset(&buf)

	if _, err := zw.Write(r.Body); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	out := &Response{
		Status: r.Status,
		Header: make(map[string]string, len(r.Header)+2),
		Body:   buf.Bytes(),
	}
	for k, v := range r.Header {
		out.Header[k] = v
	}
	out.Header["Content-Encoding"] = "gzip"
	out.Header["Vary"] = "Accept-Encoding"
	return out, nil
}

// ShouldCompress reports whether resp is worth gzipping for req.
func ShouldCompress(req *Request, resp *Response) bool {
	if len(resp.Body) < GzipMinSize || !BodyAllowed(resp.Status) || !req.AcceptsGzip() {
		return false
	}
	_, encoded := resp.Header["Content-Encoding"]
	return !encoded
}
