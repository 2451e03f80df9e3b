package http

import (
	"bufio"
	"io"
	"sync"
)

const readBufferSize = 4096

// headLimiter sits between a connection and its bufio.Reader. While armed it
// hands out at most remaining bytes and then reports io.EOF.
type headLimiter struct {
	r         io.Reader
	remaining int64
	armed     bool
	hit       bool
}

func (l *headLimiter) Read(p []byte) (int, error) {
	if !l.armed {
		return l.r.Read(p)
	}
	if l.remaining <= 0 {
		l.hit = true
		return 0, io.EOF
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}

func (l *headLimiter) arm(n int64) {
	l.armed = n > 0
	l.remaining = n
	l.hit = false
}

func (l *headLimiter) disarm() {
	l.armed = false
}

// Reader reads successive requests from one connection. The request line and
// headers of each request may pull at most MaxHeaderBytes from the
// connection, plus whatever the previous read left buffered.
type Reader struct {
	src headLimiter
	br  *bufio.Reader

	// <= 0 disables the matching limit
	MaxHeaderBytes int64
	MaxBodyBytes   int64
}

var readerPool = sync.Pool{
	New: func() any {
		r := &Reader{}
		r.br = bufio.NewReaderSize(&r.src, readBufferSize)
		return r
	},
}

// AcquireReader gets a Reader for conn from the pool.
func AcquireReader(conn io.Reader, maxHeaderBytes, maxBodyBytes int64) *Reader {
	r := readerPool.Get().(*Reader)
	r.src.r = conn
	r.src.disarm()
	r.br.Reset(&r.src)
	r.MaxHeaderBytes = maxHeaderBytes
	r.MaxBodyBytes = maxBodyBytes
	return r
}

// ReleaseReader returns r to the pool.
func ReleaseReader(r *Reader) {
	r.src.r = nil
	r.br.Reset(&r.src)
	readerPool.Put(r)
}

// Wait blocks until the next request starts arriving or the read fails.
func (r *Reader) Wait() error {
	_, err := r.br.Peek(1)
	return err
}

// Next reads one request like ReadRequest, failing with ErrHeaderTooLarge
// once the head outgrows MaxHeaderBytes.
func (r *Reader) Next(w io.Writer) (*Request, error) {
	r.src.arm(r.MaxHeaderBytes)
	return readRequest(r.br, w, r.MaxBodyBytes, &r.src)
}
