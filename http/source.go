// Package http provides a faigz.ByteSource backed by HTTP range requests,
// for querying remote FASTA files without downloading them. Pair it with
// locally cached .fai/.gzi sidecars via faigz.NewFile; only the blocks a
// query touches are transferred.
package http

import (
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
)

// Source implements random access reads via HTTP range requests. It
// satisfies faigz.ByteSource.
//
// The remote's ETag, when present, is captured at creation and sent as
// If-Match on every read, so content changing underneath an open index
// surfaces as ErrContentChanged instead of corrupt sequence data.
type Source struct {
	url    string
	client *nethttp.Client
	header nethttp.Header
	size   int64
	etag   string
}

// ErrContentChanged is returned when the remote content no longer matches
// the version the source was created against.
var ErrContentChanged = errors.New("faigz/http: remote content changed")

// ErrRangeUnsupported is returned when the server ignores Range headers.
var ErrRangeUnsupported = errors.New("faigz/http: range requests not supported")

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithHeader sets a header sent on every request.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		if s.header == nil {
			s.header = make(nethttp.Header)
		}
		s.header.Set(key, value)
	}
}

// NewSource creates a Source for url, probing the remote for its size and
// validators.
func NewSource(url string, opts ...Option) (*Source, error) {
	s := &Source{
		url:    url,
		client: nethttp.DefaultClient,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if err := s.probe(); err != nil {
		return nil, err
	}
	return s, nil
}

// Size returns the total size of the remote content.
func (s *Source) Size() int64 {
	return s.size
}

// ReadAt reads len(p) bytes at offset off with a single range request.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("faigz/http: read at %d: negative offset", off)
	}
	if off >= s.size {
		return 0, io.EOF
	}
	end := off + int64(len(p)) - 1
	want := len(p)
	if end >= s.size {
		end = s.size - 1
		want = int(end - off + 1)
	}

	req, err := s.newRequest(nethttp.MethodGet)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, end))
	if s.etag != "" {
		req.Header.Set("If-Match", s.etag)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for reuse
		_ = resp.Body.Close()                 //nolint:errcheck // best-effort
	}()

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
		// ok
	case nethttp.StatusPreconditionFailed:
		return 0, ErrContentChanged
	case nethttp.StatusRequestedRangeNotSatisfiable:
		return 0, io.EOF
	case nethttp.StatusOK:
		return 0, ErrRangeUnsupported
	default:
		return 0, fmt.Errorf("faigz/http: range request failed: %s", resp.Status)
	}

	n, err := io.ReadFull(resp.Body, p[:want])
	if err != nil {
		return n, err
	}
	if want < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// probe issues a 1-byte range request to learn the content size and ETag.
// A GET probe is used rather than HEAD because some servers omit
// Content-Length or validators on HEAD.
func (s *Source) probe() error {
	req, err := s.newRequest(nethttp.MethodGet)
	if err != nil {
		return err
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for reuse
		_ = resp.Body.Close()                 //nolint:errcheck // best-effort
	}()

	if resp.StatusCode != nethttp.StatusPartialContent {
		return ErrRangeUnsupported
	}
	var total int64
	if _, err := fmt.Sscanf(resp.Header.Get("Content-Range"), "bytes 0-0/%d", &total); err != nil {
		return fmt.Errorf("faigz/http: bad Content-Range %q", resp.Header.Get("Content-Range"))
	}
	s.size = total
	s.etag = resp.Header.Get("ETag")
	return nil
}

func (s *Source) newRequest(method string) (*nethttp.Request, error) {
	req, err := nethttp.NewRequest(method, s.url, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range s.header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	return req, nil
}
