/*
Copyright The Zimsync Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package getter

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/zimtools/zimsync/internal/version"
)

// HTTPGetter is the default HTTP(/S) backend handler
type HTTPGetter struct {
	opts      options
	transport *http.Transport
	once      sync.Once
}

// NewHTTPGetter constructs a valid http/https client as a Getter
func NewHTTPGetter(opts ...Option) (Getter, error) {
	client := HTTPGetter{
		opts: options{
			followRedirects: true,
		},
	}
	for _, opt := range opts {
		opt(&client.opts)
	}
	return &client, nil
}

// Get performs a Get and returns the body.
func (g *HTTPGetter) Get(href string, opts ...Option) (*bytes.Buffer, error) {
	// Create a local copy of options to avoid data races when Get is called
	// concurrently.
	o := g.opts
	for _, opt := range opts {
		opt(&o)
	}

	buf := bytes.NewBuffer(nil)
	err := g.retry(o, func() error {
		req, err := g.newRequest(http.MethodGet, href, o)
		if err != nil {
			return err
		}
		resp, err := g.httpClient(o).Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return &statusError{href: href, status: resp.Status, code: resp.StatusCode}
		}
		buf.Reset()
		_, err = io.Copy(buf, resp.Body)
		return err
	})
	return buf, err
}

// Probe issues a metadata-only HEAD request and reports the raw response
// without following redirects, so a 3xx Location can be captured.
func (g *HTTPGetter) Probe(href string, opts ...Option) (*ProbeResult, error) {
	o := g.opts
	for _, opt := range opts {
		opt(&o)
	}
	o.followRedirects = false
	if o.timeout == 0 {
		o.timeout = o.connectTimeout
	}

	var res *ProbeResult
	err := g.retry(o, func() error {
		req, err := g.newRequest(http.MethodHead, href, o)
		if err != nil {
			return err
		}
		resp, err := g.httpClient(o).Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		res = &ProbeResult{
			StatusCode: resp.StatusCode,
			// Header lookup is case-insensitive per net/http canonicalization.
			Location:      resp.Header.Get("Location"),
			ContentLength: resp.ContentLength,
		}
		return nil
	})
	return res, err
}

// Download streams href into dest. An existing partial dest is resumed with a
// range request when the server supports it; a server that ignores the range
// restarts the file from zero rather than corrupting it.
func (g *HTTPGetter) Download(href, dest string, opts ...Option) (int64, error) {
	o := g.opts
	for _, opt := range opts {
		opt(&o)
	}

	var written int64
	err := g.retry(o, func() error {
		n, err := g.download(href, dest, o)
		written += n
		return err
	})
	return written, err
}

func (g *HTTPGetter) download(href, dest string, o options) (int64, error) {
	var have int64
	if fi, err := os.Stat(dest); err == nil {
		have = fi.Size()
	}

	req, err := g.newRequest(http.MethodGet, href, o)
	if err != nil {
		return 0, err
	}
	if have > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", have))
	}

	resp, err := g.httpClient(o).Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	flags := os.O_WRONLY | os.O_CREATE
	switch resp.StatusCode {
	case http.StatusPartialContent:
		flags |= os.O_APPEND
	case http.StatusOK:
		// Server ignored the range request; start over.
		flags |= os.O_TRUNC
	case http.StatusRequestedRangeNotSatisfiable:
		// The partial file already covers the whole resource.
		return 0, nil
	default:
		return 0, &statusError{href: href, status: resp.Status, code: resp.StatusCode}
	}

	f, err := os.OpenFile(dest, flags, 0644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// statusError marks HTTP-level failures. Server errors are worth retrying;
// client errors such as 404 are not.
type statusError struct {
	href   string
	status string
	code   int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("failed to fetch %s : %s", e.href, e.status)
}

func (e *statusError) transient() bool { return e.code >= 500 }

// retry runs fn up to 1+retries times with a fixed delay between attempts,
// per the configured transfer policy. Non-transient HTTP failures abort
// immediately.
func (g *HTTPGetter) retry(o options, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if se, ok := err.(*statusError); ok && !se.transient() {
			return err
		}
		if attempt >= o.retries {
			break
		}
		time.Sleep(o.retryDelay)
	}
	if o.retries > 0 {
		return errors.Wrapf(err, "giving up after %d attempts", o.retries+1)
	}
	return err
}

func (g *HTTPGetter) newRequest(method, href string, o options) (*http.Request, error) {
	req, err := http.NewRequest(method, href, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.GetUserAgent())
	if o.userAgent != "" {
		req.Header.Set("User-Agent", o.userAgent)
	}
	return req, nil
}

func (g *HTTPGetter) httpClient(o options) *http.Client {
	var transport *http.Transport
	if o.connectTimeout > 0 {
		// A per-call transport: the dial timeout is part of the transfer
		// policy, not a process-wide constant.
		transport = &http.Transport{
			DisableCompression: true,
			Proxy:              http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: o.connectTimeout,
			}).DialContext,
			ResponseHeaderTimeout: o.connectTimeout,
		}
	} else {
		// Use shared transport for the default case.
		g.once.Do(func() {
			g.transport = &http.Transport{
				DisableCompression: true,
				Proxy:              http.ProxyFromEnvironment,
			}
		})
		transport = g.transport
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   o.timeout,
	}
	if !o.followRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}
