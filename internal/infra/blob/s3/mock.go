package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewMockForTests returns a Store whose client talks to an in-memory fake
// S3 transport. Head, Get, Put and ListObjectsV2 are implemented.
func NewMockForTests() *Store {
	return newStoreWithTransport(newFakeS3(0), "mock-bucket")
}

func newStoreWithTransport(rt http.RoundTripper, bucket string) *Store {
	cfg, _ := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
	})
	return &Store{client: client, bucket: bucket}
}

// fakeS3 serves path-style requests of the form /<bucket>/<key>. pageSize > 0
// splits list responses into pages of that many keys.
type fakeS3 struct {
	mu       sync.Mutex
	state    map[string]fakeObject
	pageSize int
}

type fakeObject struct {
	body        []byte
	contentType string
}

func newFakeS3(pageSize int) *fakeS3 {
	return &fakeS3{state: make(map[string]fakeObject), pageSize: pageSize}
}

func (m *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		return m.list(req.URL.Query().Get("prefix"), req.URL.Query().Get("continuation-token")), nil
	}
	switch req.Method {
	case http.MethodHead, http.MethodGet:
		obj, ok := m.state[key]
		if !ok {
			return response(http.StatusNotFound, nil, http.Header{}), nil
		}
		header := http.Header{}
		header.Set("Content-Length", strconv.Itoa(len(obj.body)))
		header.Set("Content-Type", obj.contentType)
		header.Set("ETag", "\"etag-"+strconv.Itoa(len(obj.body))+"\"")
		header.Set("Last-Modified", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat))
		if req.Method == http.MethodHead {
			return response(http.StatusOK, nil, header), nil
		}
		return response(http.StatusOK, obj.body, header), nil
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		if _, exists := m.state[key]; !exists {
			m.state[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type")}
		}
		header := http.Header{}
		header.Set("ETag", "\"etag\"")
		return response(http.StatusOK, nil, header), nil
	}
	return response(http.StatusNotImplemented, nil, http.Header{}), nil
}

func (m *fakeS3) list(prefix, token string) *http.Response {
	var keys []string
	for k := range m.state {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	start := 0
	if token != "" {
		start, _ = strconv.Atoi(token)
	}
	end := len(keys)
	if m.pageSize > 0 && start+m.pageSize < end {
		end = start + m.pageSize
	}
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><ListBucketResult>`)
	if end < len(keys) {
		fmt.Fprintf(&b, "<IsTruncated>true</IsTruncated><NextContinuationToken>%d</NextContinuationToken>", end)
	} else {
		b.WriteString("<IsTruncated>false</IsTruncated>")
	}
	for _, k := range keys[start:end] {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", k, len(m.state[k].body))
	}
	b.WriteString("</ListBucketResult>")
	return response(http.StatusOK, []byte(b.String()), http.Header{"Content-Type": {"application/xml"}})
}

func response(status int, body []byte, header http.Header) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(body)), Header: header, ContentLength: int64(len(body))}
}

// decodeChunked unwraps an aws-chunked payload: repeated
// <hex size>[;chunk-signature=...]\r\n<data>\r\n frames ending with a zero
// sized frame and optional trailers.
func decodeChunked(b []byte) ([]byte, bool) {
	var out []byte
	rest := b
	for {
		head, tail, ok := bytes.Cut(rest, []byte("\r\n"))
		if !ok {
			return nil, false
		}
		sizeHex, _, _ := strings.Cut(string(head), ";")
		n, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil || n < 0 {
			return nil, false
		}
		if n == 0 {
			return out, true
		}
		if int64(len(tail)) < n+2 || string(tail[n:n+2]) != "\r\n" {
			return nil, false
		}
		out = append(out, tail[:n]...)
		rest = tail[n+2:]
	}
}
