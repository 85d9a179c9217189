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
	"time"
)

// options are generic parameters to be provided to the getter during
// instantiation.
//
// Getters may or may not ignore these parameters as they are passed in.
type options struct {
	userAgent       string
	timeout         time.Duration
	connectTimeout  time.Duration
	retries         int
	retryDelay      time.Duration
	followRedirects bool
}

// Option allows specifying various settings configurable by the user for
// overriding the defaults used when performing Get operations with the
// Getter.
type Option func(*options)

// WithUserAgent sets the request's User-Agent header to use the provided
// agent name.
func WithUserAgent(userAgent string) Option {
	return func(opts *options) {
		opts.userAgent = userAgent
	}
}

// WithTimeout sets the timeout for whole requests. Zero means no limit, which
// is what large snapshot transfers want.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		opts.timeout = timeout
	}
}

// WithConnectTimeout bounds connection establishment and the wait for
// response headers, independently of transfer duration.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		opts.connectTimeout = timeout
	}
}

// WithRetries sets how many times a failed request is reattempted.
func WithRetries(n int) Option {
	return func(opts *options) {
		opts.retries = n
	}
}

// WithRetryDelay sets the fixed delay between retry attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(opts *options) {
		opts.retryDelay = d
	}
}

// WithFollowRedirects controls whether Get and Download follow redirects.
// Probe never follows them; capturing the redirect is its whole point.
func WithFollowRedirects(follow bool) Option {
	return func(opts *options) {
		opts.followRedirects = follow
	}
}

// ProbeResult reports what a metadata-only request learned about a URL.
type ProbeResult struct {
	// StatusCode is the HTTP status of the final response.
	StatusCode int
	// Location is the target of a redirect response, empty otherwise.
	Location string
	// ContentLength is the advertised size, or -1 when unknown.
	ContentLength int64
}

// Getter is an interface to support GET to the specified URL.
type Getter interface {
	// Get file content by url string
	Get(href string, opts ...Option) (*bytes.Buffer, error)
	// Download writes the resource to dest, resuming a partial file when the
	// server supports range requests. It returns the bytes written by this
	// call.
	Download(href, dest string, opts ...Option) (int64, error)
	// Probe issues a metadata-only request without following redirects.
	Probe(href string, opts ...Option) (*ProbeResult, error)
}
