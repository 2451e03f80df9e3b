package http

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readOne(t *testing.T, raw string, maxBody int64) (*Request, error) {
	t.Helper()
	return ReadRequest(bufio.NewReader(strings.NewReader(raw)), io.Discard, maxBody)
}

func TestReadRequest(t *testing.T) {
	raw := "POST /api/items?limit=10&sort=asc HTTP/1.1\r\n" +
		"Host: localhost:8080\r\n" +
		"Content-Type: application/json\r\n" +
		"x-custom: one\r\n" +
		"Content-Length: 13\r\n" +
		"\r\n" +
		`{"name":"a"}` + "\n"

	req, err := readOne(t, raw, 1024)
	require.NoError(t, err)
	defer ReleaseRequest(req)

	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "/api/items", req.Path)
	assert.Equal(t, "HTTP/1.1", req.Proto)
	assert.Equal(t, "localhost:8080", req.Host)
	assert.Equal(t, "localhost:8080", req.Header("host"))
	assert.Equal(t, "one", req.Header("X-Custom"))
	assert.Equal(t, "10", req.Query["limit"])
	assert.Equal(t, "asc", req.Query["sort"])
	assert.Equal(t, "{\"name\":\"a\"}\n", string(req.Body))
	assert.True(t, req.KeepAlive)
}

func TestReadRequestPaths(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"/", "/"},
		{"/a%20b", "/a%20b"},
		{"/a//b/../c", "/a//b/../c"},
		{"/Case/", "/Case/"},
		{"/x?y=1", "/x"},
		{"http://example.com/abs?q=1", "/abs"},
		{"http://example.com", "/"},
		{"*", "*"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			method := "GET"
			if tt.target == "*" {
				method = "OPTIONS"
			}
			req, err := readOne(t, method+" "+tt.target+" HTTP/1.1\r\nHost: x\r\n\r\n", 0)
			require.NoError(t, err)
			defer ReleaseRequest(req)
			assert.Equal(t, tt.want, req.Path)
		})
	}
}

func TestReadRequestKeepAlive(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"GET / HTTP/1.1\r\nHost: x\r\n\r\n", true},
		{"GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n", false},
		{"GET / HTTP/1.0\r\n\r\n", false},
		{"GET / HTTP/1.0\r\nConnection: keep-alive\r\n\r\n", true},
	}
	for _, tt := range tests {
		req, err := readOne(t, tt.raw, 0)
		require.NoError(t, err)
		assert.Equal(t, tt.want, req.KeepAlive, tt.raw)
		ReleaseRequest(req)
	}
}

func TestReadRequestSequential(t *testing.T) {
	raw := "POST /a HTTP/1.1\r\nHost: x\r\nContent-Length: 2\r\n\r\n{}" +
		"GET /b HTTP/1.1\r\nHost: x\r\n\r\n"
	br := bufio.NewReader(strings.NewReader(raw))

	first, err := ReadRequest(br, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "/a", first.Path)
	assert.Equal(t, "{}", string(first.Body))
	ReleaseRequest(first)

	second, err := ReadRequest(br, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "/b", second.Path)
	assert.Empty(t, second.Body)
	ReleaseRequest(second)

	_, err = ReadRequest(br, nil, 0)
	assert.Equal(t, io.EOF, err)
}

func TestReadRequestChunked(t *testing.T) {
	raw := "POST /c HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"3\r\nabc\r\n2\r\nde\r\n0\r\n\r\n"

	req, err := readOne(t, raw, 0)
	require.NoError(t, err)
	defer ReleaseRequest(req)
	assert.Equal(t, "abcde", string(req.Body))
}

func TestReadRequestErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		maxBody int64
		wantErr error
	}{
		{"garbage", "GARBAGE\r\n\r\n", 0, ErrMalformedRequest},
		{"bad proto", "GET / HTTP/9\r\n\r\n", 0, ErrMalformedRequest},
		{"bad content length", "POST / HTTP/1.1\r\nHost: x\r\nContent-Length: abc\r\n\r\n", 0, ErrMalformedRequest},
		{"truncated headers", "GET / HTTP/1.1\r\nHost: x\r\n", 0, ErrMalformedRequest},
		{"declared body too large", "POST / HTTP/1.1\r\nHost: x\r\nContent-Length: 10\r\n\r\n0123456789", 5, ErrBodyTooLarge},
		{"chunked body too large", "POST / HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: chunked\r\n\r\na\r\n0123456789\r\n0\r\n\r\n", 5, ErrBodyTooLarge},
		{"truncated body", "POST / HTTP/1.1\r\nHost: x\r\nContent-Length: 10\r\n\r\n01", 0, ErrMalformedRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readOne(t, tt.raw, tt.maxBody)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReadRequestExpectContinue(t *testing.T) {
	raw := "POST /up HTTP/1.1\r\nHost: x\r\nExpect: 100-continue\r\nContent-Length: 2\r\n\r\n{}"

	var w bytes.Buffer
	req, err := ReadRequest(bufio.NewReader(strings.NewReader(raw)), &w, 0)
	require.NoError(t, err)
	defer ReleaseRequest(req)

	assert.Equal(t, "HTTP/1.1 100 Continue\r\n\r\n", w.String())
	assert.Equal(t, "{}", string(req.Body))

	// no interim response when the declared body exceeds the limit
	w.Reset()
	_, err = ReadRequest(bufio.NewReader(strings.NewReader(raw)), &w, 1)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
	assert.Empty(t, w.String())
}

func BenchmarkReadRequest(b *testing.B) {
	raw := "GET /hello/world?x=1 HTTP/1.1\r\nHost: localhost\r\nUser-Agent: bench\r\nAccept: */*\r\n\r\n"
	r := strings.NewReader(raw)
	br := bufio.NewReader(r)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Reset(raw)
		br.Reset(r)
		req, err := ReadRequest(br, nil, 0)
		if err != nil {
			b.Fatal(err)
		}
		ReleaseRequest(req)
	}
}
