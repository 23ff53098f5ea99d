package http_test

import (
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	faigzhttp "github.com/lumenbio/faigz/http"
)

func newServer(tb testing.TB, content string) *httptest.Server {
	tb.Helper()
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.ServeContent(w, r, "ref.fa", time.Unix(0, 0), strings.NewReader(content))
	}))
	tb.Cleanup(srv.Close)
	return srv
}

func TestSourceSizeAndReadAt(t *testing.T) {
	content := strings.Repeat("ACGT", 100)
	srv := newServer(t, content)

	src, err := faigzhttp.NewSource(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), src.Size())

	buf := make([]byte, 16)
	n, err := src.ReadAt(buf, 100)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.Equal(t, content[100:116], string(buf))
}

func TestSourceReadAtEOF(t *testing.T) {
	srv := newServer(t, "ACGTACGT")
	src, err := faigzhttp.NewSource(srv.URL)
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := src.ReadAt(buf, 4)
	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 4, n)
	assert.Equal(t, "ACGT", string(buf[:n]))

	_, err = src.ReadAt(buf, 100)
	require.ErrorIs(t, err, io.EOF)
}

func TestSourceRangeUnsupported(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		_, _ = io.WriteString(w, "no ranges here")
	}))
	t.Cleanup(srv.Close)

	_, err := faigzhttp.NewSource(srv.URL)
	require.ErrorIs(t, err, faigzhttp.ErrRangeUnsupported)
}

func TestSourceSendsCustomHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		got = r.Header.Get("Authorization")
		nethttp.ServeContent(w, r, "ref.fa", time.Unix(0, 0), strings.NewReader("ACGT"))
	}))
	t.Cleanup(srv.Close)

	_, err := faigzhttp.NewSource(srv.URL, faigzhttp.WithHeader("Authorization", "Bearer tok"))
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", got)
}
