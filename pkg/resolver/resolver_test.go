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

package resolver

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zimtools/zimsync/pkg/getter"
	"github.com/zimtools/zimsync/pkg/mirror"
)

const edition = "wikipedia_en_all_maxi"

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	g, err := getter.NewHTTPGetter()
	if err != nil {
		t.Fatal(err)
	}
	return New(g)
}

// redirectMirror answers the latest-alias probe with a redirect to the dated
// snapshot and serves metadata requests for it.
func redirectMirror(t *testing.T, dated string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/"+edition+"_latest.zim", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/"+dated, http.StatusFound)
	})
	mux.HandleFunc("/"+dated, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveViaRedirect(t *testing.T) {
	dated := edition + "_2025-03.zim"
	srv := redirectMirror(t, dated)

	u, err := newResolver(t).Resolve(mirror.FromURLs(srv.URL), edition)
	if err != nil {
		t.Fatal(err)
	}
	if u.String() != srv.URL+"/"+dated {
		t.Errorf("resolved %s, want %s/%s", u, srv.URL, dated)
	}
}

func TestResolveRedirectToDeadTarget(t *testing.T) {
	// The probe redirects, but the target does not exist: the mirror must
	// not count as resolved on the strength of the redirect alone.
	mux := http.NewServeMux()
	mux.HandleFunc("/"+edition+"_latest.zim", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/"+edition+"_2025-03.zim", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newResolver(t).Resolve(mirror.FromURLs(srv.URL), edition)
	if !errors.Is(err, ErrNoMirrorResolved) {
		t.Fatalf("expected ErrNoMirrorResolved, got %v", err)
	}
}

func TestResolveViaListing(t *testing.T) {
	// Probe 404s; the directory listing carries several dated candidates.
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `<html><body>
<a href="%s_2023-12.zim">old</a>
<a href="%s_2024-11.zim">older</a>
<a href="%s_2025-03.zim">newest</a>
<a href="%s_2025-03.zim.sha256">sum</a>
</body></html>`, edition, edition, edition, edition)
	})
	mux.HandleFunc("/"+edition+"_2025-03.zim", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// A second mirror that must never be consulted, since the first one
	// succeeds via the listing tier.
	var fallbackHits int
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallbackHits++
		w.WriteHeader(http.StatusOK)
	}))
	defer fallback.Close()

	u, err := newResolver(t).Resolve(mirror.FromURLs(srv.URL, fallback.URL), edition)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(u.Path, edition+"_2025-03.zim") {
		t.Errorf("resolved %s, want the 2025-03 snapshot", u)
	}
	if fallbackHits != 0 {
		t.Errorf("fallback mirror was consulted %d times", fallbackHits)
	}
}

func TestResolveFallsThroughToNextMirror(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer dead.Close()

	dated := edition + "_2025-03.zim"
	good := redirectMirror(t, dated)

	u, err := newResolver(t).Resolve(mirror.FromURLs(dead.URL, good.URL), edition)
	if err != nil {
		t.Fatal(err)
	}
	if u.String() != good.URL+"/"+dated {
		t.Errorf("resolved %s, want the fallback mirror's snapshot", u)
	}
}

func TestResolveNoMirror(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer dead.Close()

	_, err := newResolver(t).Resolve(mirror.FromURLs(dead.URL), edition)
	if !errors.Is(err, ErrNoMirrorResolved) {
		t.Fatalf("expected ErrNoMirrorResolved, got %v", err)
	}

	_, err = newResolver(t).Resolve(nil, edition)
	if !errors.Is(err, ErrNoMirrorResolved) {
		t.Fatalf("expected ErrNoMirrorResolved for empty mirror list, got %v", err)
	}
}

func TestResolveListingIgnoresForeignNames(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `
<a href="other_edition_2026-01.zim">foreign</a>
<a href="%s_current.zim">alias</a>
<a href="%s_2024-07.zim">real</a>`, edition, edition)
	})
	mux.HandleFunc("/"+edition+"_2024-07.zim", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	u, err := newResolver(t).Resolve(mirror.FromURLs(srv.URL), edition)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(u.Path, edition+"_2024-07.zim") {
		t.Errorf("resolved %s, want the only real candidate", u)
	}
}
