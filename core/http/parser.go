package http

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
)

var (
	ErrMalformedRequest = errors.New("malformed HTTP request")
	ErrBodyTooLarge     = errors.New("request body too large")
	ErrHeaderTooLarge   = errors.New("request header too large")
)

var continueLine = []byte("HTTP/1.1 100 Continue\r\n\r\n")

// ReadRequest reads exactly one request from br, including its body, so the
// reader is positioned at the next request on the connection. Framing
// (Content-Length, chunked bodies) is handled by net/http. Bodies larger than
// maxBody are rejected with ErrBodyTooLarge; maxBody <= 0 disables the limit.
// If the client sent "Expect: 100-continue", the interim response is written
// to w before the body is read.
//
// io.EOF is returned unwrapped when the peer closed the connection cleanly
// between requests. On ErrBodyTooLarge the rest of the body is left unread.
func ReadRequest(br *bufio.Reader, w io.Writer, maxBody int64) (*Request, error) {
	return readRequest(br, w, maxBody, nil)
}

func readRequest(br *bufio.Reader, w io.Writer, maxBody int64, head *headLimiter) (*Request, error) {
	hr, err := nethttp.ReadRequest(br)
	if head != nil {
		exceeded := head.hit
		head.disarm()
		if err != nil && exceeded {
			return nil, ErrHeaderTooLarge
		}
	}
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	if maxBody > 0 && hr.ContentLength > maxBody {
		return nil, ErrBodyTooLarge
	}

	if w != nil && hr.ProtoAtLeast(1, 1) && hr.ContentLength != 0 &&
		strings.EqualFold(hr.Header.Get("Expect"), "100-continue") {
		if _, err := w.Write(continueLine); err != nil {
			return nil, err
		}
	}

	req := AcquireRequest()
	req.Method = hr.Method
	req.Path = rawPath(hr)
	req.Proto = hr.Proto
	req.Host = hr.Host
	req.KeepAlive = !hr.Close

	for k, vs := range hr.Header {
		if len(vs) > 0 {
			req.Headers[k] = vs[0]
		}
	}

	if hr.URL != nil && hr.URL.RawQuery != "" {
		if req.Query == nil {
			req.Query = make(map[string]string)
		}
		for k, vs := range hr.URL.Query() {
			if len(vs) > 0 {
				req.Query[k] = vs[0]
			}
		}
	}

	req.Body, err = readBody(req.Body[:0], hr.Body, maxBody)
	if err != nil {
		ReleaseRequest(req)
		if errors.Is(err, ErrBodyTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}
	hr.Body.Close()

	return req, nil
}

// rawPath returns the path exactly as it appeared on the request line, minus
// the query string. No percent-decoding or slash cleanup is applied.
func rawPath(hr *nethttp.Request) string {
	uri := hr.RequestURI
	if strings.HasPrefix(uri, "/") {
		if i := strings.IndexByte(uri, '?'); i >= 0 {
			uri = uri[:i]
		}
		return uri
	}
	if uri == "*" {
		return uri
	}
	// absolute-form: GET http://host/path HTTP/1.1
	if hr.URL != nil {
		if p := hr.URL.EscapedPath(); p != "" {
			return p
		}
	}
	return "/"
}

// readBody appends the whole of r to dst, failing once more than limit bytes
// have been seen.
func readBody(dst []byte, r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	for {
		if len(dst) == cap(dst) {
			dst = append(dst, 0)[:len(dst)]
		}
		n, err := r.Read(dst[len(dst):cap(dst)])
		dst = dst[:len(dst)+n]
		if limit > 0 && int64(len(dst)) > limit {
			return dst, ErrBodyTooLarge
		}
		if err == io.EOF {
			return dst, nil
		}
		if err != nil {
			return dst, err
		}
	}
}
