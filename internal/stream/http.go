package stream

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"mediadl/internal/domain/consts"
	"mediadl/internal/models"

	"golang.org/x/net/publicsuffix"
)

// UserAgent is sent with every stream request.
const UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

// NewHTTPClient returns a client suited to long-lived media transfers.
//
// There is no overall request timeout; only dialing and response headers are
// bounded. Cookies, if given, are loaded into a public-suffix aware jar.
func NewHTTPClient(headerTimeout time.Duration, cookies map[string][]*http.Cookie) (*http.Client, error) {
	if headerTimeout <= 0 {
		headerTimeout = consts.HTTPResponseTimeout
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	for rawURL, cs := range cookies {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("invalid cookie URL %q: %w", rawURL, err)
		}
		jar.SetCookies(u, cs)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   consts.HTTPDialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: headerTimeout,
		TLSHandshakeTimeout:   consts.HTTPDialTimeout,
		MaxIdleConnsPerHost:   4,
	}

	return &http.Client{
		Transport: transport,
		Jar:       jar,
	}, nil
}

// HTTPSource streams a single URL.
type HTTPSource struct {
	Client *http.Client
	URL    string
	Header http.Header
	// Size is the expected length, used when the response does not declare one.
	// Zero means unknown.
	Size int64
}

// Open issues the GET request and returns the response body and its declared length.
func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, models.UnknownTotal, err
	}
	for k, vs := range s.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, models.UnknownTotal, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, models.UnknownTotal, fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}

	size := resp.ContentLength
	if size < 0 && s.Size > 0 {
		size = s.Size
	}
	if size < 0 {
		size = models.UnknownTotal
	}
	return resp.Body, size, nil
}
