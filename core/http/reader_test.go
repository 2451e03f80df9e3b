package http

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderHeaderLimit(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nHost: x\r\nX-Big: " + strings.Repeat("a", 8<<10) + "\r\n\r\n"

	rd := AcquireReader(strings.NewReader(raw), 1024, 0)
	defer ReleaseReader(rd)

	_, err := rd.Next(io.Discard)
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestReaderUnterminatedHeader(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nX-Big: " + strings.Repeat("a", 8<<10)

	rd := AcquireReader(strings.NewReader(raw), 1024, 0)
	defer ReleaseReader(rd)

	_, err := rd.Next(io.Discard)
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestReaderLimitDoesNotApplyToBody(t *testing.T) {
	body := strings.Repeat("b", 4<<10)
	raw := "POST /up HTTP/1.1\r\nHost: x\r\nContent-Length: 4096\r\n\r\n" + body +
		"GET /next HTTP/1.1\r\nHost: x\r\n\r\n"

	rd := AcquireReader(strings.NewReader(raw), 256, 0)
	defer ReleaseReader(rd)

	req, err := rd.Next(io.Discard)
	require.NoError(t, err)
	assert.Equal(t, body, string(req.Body))
	ReleaseRequest(req)

	// the limit is re-armed for every request
	require.NoError(t, rd.Wait())
	req, err = rd.Next(io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "/next", req.Path)
	ReleaseRequest(req)

	_, err = rd.Next(io.Discard)
	assert.Equal(t, io.EOF, err)
}

func TestReaderBodyLimit(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nHost: x\r\nContent-Length: 100\r\n\r\n"

	rd := AcquireReader(strings.NewReader(raw), 0, 10)
	defer ReleaseReader(rd)

	_, err := rd.Next(io.Discard)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}
