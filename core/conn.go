package core

import (
	"errors"
	"io"
	"net"
	nethttp "net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vivooifo-droid/defacto-backend/core/http"
	"github.com/vivooifo-droid/defacto-backend/core/pools"
)

// maxRequestIDLen bounds client supplied X-Request-ID values
const maxRequestIDLen = 128

// After a rejection, at most lingerBytes of the unread request are discarded
// for at most lingerTimeout before the connection closes.
const (
	lingerTimeout = 500 * time.Millisecond
	lingerBytes   = 256 << 10
)

// serveConn reads requests from conn one at a time and writes each response
// before reading the next. The connection is closed when the client asks for
// it, on HTTP/1.0 without keep-alive, on a malformed request, on any I/O
// error, or once it has been idle for IdleTimeout.
func (e *Engine) serveConn(conn net.Conn) {
	e.active.Add(1)
	defer e.active.Add(-1)
	defer e.untrack(conn)
	defer conn.Close()

	rd := http.AcquireReader(conn, e.opts.MaxHeaderBytes, e.opts.MaxBodyBytes)
	defer http.ReleaseReader(rd)

	remote := conn.RemoteAddr().String()

	for first := true; ; first = false {
		if !first && e.opts.IdleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(e.opts.IdleTimeout))
			if err := rd.Wait(); err != nil {
				return
			}
		}
		if e.opts.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(e.opts.ReadTimeout))
		} else {
			conn.SetReadDeadline(time.Time{})
		}

		req, err := rd.Next(conn)
		if err != nil {
			e.rejectRequest(conn, remote, err)
			return
		}

		req.RemoteAddr = remote
		req.ID = requestID(req)

		if !e.serveRequest(conn, req) {
			return
		}
	}
}

// serveRequest dispatches req, writes the response and releases req. It
// reports whether the connection may carry another request.
func (e *Engine) serveRequest(conn net.Conn, req *http.Request) bool {
	start := time.Now()
	defer http.ReleaseRequest(req)

	resp, label := e.dispatch(req)
	if e.opts.Compress && http.ShouldCompress(req, resp) {
		if gz, err := resp.Gzip(); err == nil {
			resp = gz
		} else {
			e.logger.Warn().Err(err).Str("request_id", req.ID).Msg("gzip failed, sending identity body")
		}
	}

	// metrics include a request before its client can read the response
	elapsed := time.Since(start)
	e.monitor.Record(label, resp.Status, elapsed)

	keepAlive := req.KeepAlive
	err := e.writeResponse(conn, resp, http.Head{
		RequestID: req.ID,
		Date:      time.Now().UTC().Format(nethttp.TimeFormat),
		Close:     !keepAlive,
		OmitBody:  req.Method == nethttp.MethodHead,
	})

	e.logger.Info().
		Str("request_id", req.ID).
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.Status).
		Dur("duration", elapsed).
		Str("remote", req.RemoteAddr).
		Msg("📩 Request")

	if err != nil {
		e.logger.Debug().Err(err).Str("request_id", req.ID).Msg("write failed")
		return false
	}
	return keepAlive
}

// rejectRequest answers a request that could not be read. Clean closes and
// network errors get no response.
func (e *Engine) rejectRequest(conn net.Conn, remote string, err error) {
	var ne net.Error
	switch {
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.As(err, &ne):
		return
	}

	resp := http.Error(nethttp.StatusBadRequest)
	switch {
	case errors.Is(err, http.ErrBodyTooLarge):
		resp = http.Error(nethttp.StatusRequestEntityTooLarge)
	case errors.Is(err, http.ErrHeaderTooLarge):
		resp = http.Error(nethttp.StatusRequestHeaderFieldsTooLarge)
	}

	id := uuid.NewString()
	e.logger.Warn().
		Err(err).
		Str("request_id", id).
		Str("remote", remote).
		Int("status", resp.Status).
		Msg("rejected request")
	e.monitor.Record(labelRejected, resp.Status, 0)

	if err := e.writeResponse(conn, resp, http.Head{
		RequestID: id,
		Date:      time.Now().UTC().Format(nethttp.TimeFormat),
		Close:     true,
	}); err != nil {
		return
	}
	linger(conn)
}

// linger half-closes conn and discards what the client is still sending.
func linger(conn net.Conn) {
	cw, ok := conn.(interface{ CloseWrite() error })
	if !ok || cw.CloseWrite() != nil {
		return
	}
	conn.SetReadDeadline(time.Now().Add(lingerTimeout))
	_, _ = io.Copy(io.Discard, io.LimitReader(conn, lingerBytes))
}

func (e *Engine) writeResponse(conn net.Conn, resp *http.Response, h http.Head) error {
	buf := pools.AcquireBuffer(len(resp.Body) + 256)
	defer pools.ReleaseBuffer(buf)

	*buf = resp.AppendTo(*buf, h)

	if e.opts.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(e.opts.WriteTimeout))
	}
	_, err := conn.Write(*buf)
	return err
}

// requestID reuses a well-formed X-Request-ID from the client or makes a new
// one.
func requestID(req *http.Request) string {
	if id := req.Header(HeaderRequestID); validRequestID(id) {
		return id
	}
	return uuid.NewString()
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if c := id[i]; c <= ' ' || c >= 0x7f {
			return false
		}
	}
	return true
}
