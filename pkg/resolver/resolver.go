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

/*Package resolver turns the "latest" indirection of a mirror into the
concrete URL of the newest dated snapshot.

Resolution is two-tier per mirror: a redirect probe against the well-known
{edition}_latest.zim name, then a directory-listing scrape for mirrors that
serve the alias as a plain file instead of a redirect. Either way the
candidate is confirmed reachable before the mirror is declared resolved, so a
mirror that redirects into a dead link fails over to the next mirror instead
of poisoning the run.
*/
package resolver

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/zimtools/zimsync/pkg/getter"
	"github.com/zimtools/zimsync/pkg/mirror"
	"github.com/zimtools/zimsync/pkg/zim"
)

// ErrNoMirrorResolved is returned when every configured mirror fails both
// resolution tiers.
var ErrNoMirrorResolved = errors.New("no mirror resolved a latest snapshot")

// Resolver resolves the latest dated snapshot of an edition across an
// ordered mirror list.
type Resolver struct {
	getter getter.Getter
	opts   []getter.Option
}

// New returns a Resolver using the given getter for all probe and listing
// requests.
func New(g getter.Getter, opts ...getter.Option) *Resolver {
	return &Resolver{getter: g, opts: opts}
}

// Resolve tries each mirror in order and returns the URL of the newest dated
// snapshot from the first mirror that yields one. A mirror that resolved via
// either tier stops the search; later mirrors are never consulted. When no
// mirror resolves, the returned error wraps ErrNoMirrorResolved together
// with every per-mirror failure.
func (r *Resolver) Resolve(mirrors []mirror.Mirror, edition string) (*url.URL, error) {
	if edition == "" {
		return nil, errors.New("no edition given")
	}
	if len(mirrors) == 0 {
		return nil, errors.Wrap(ErrNoMirrorResolved, "no mirrors configured")
	}

	var merr *multierror.Error
	for _, m := range mirrors {
		u, err := r.resolveMirror(m, edition)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"mirror":  m.String(),
				"edition": edition,
			}).Debugf("mirror did not resolve: %v", err)
			merr = multierror.Append(merr, errors.Wrapf(err, "mirror %s", m))
			continue
		}
		return u, nil
	}
	return nil, errors.Wrap(ErrNoMirrorResolved, merr.Error())
}

func (r *Resolver) resolveMirror(m mirror.Mirror, edition string) (*url.URL, error) {
	base, err := url.Parse(strings.TrimRight(m.URL, "/") + "/")
	if err != nil {
		return nil, errors.Wrapf(err, "invalid mirror URL %q", m.URL)
	}

	if u, err := r.probeLatest(base, edition); err == nil {
		return u, nil
	} else {
		logrus.Debugf("redirect probe on %s failed: %v", m, err)
	}

	return r.scrapeListing(base, edition)
}

// probeLatest implements tier 1: a metadata request for the latest alias,
// taking the redirect target as the candidate.
func (r *Resolver) probeLatest(base *url.URL, edition string) (*url.URL, error) {
	probe := base.JoinPath(zim.LatestFilename(edition))

	res, err := r.getter.Probe(probe.String(), r.opts...)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 300 || res.StatusCode >= 400 {
		return nil, errors.Errorf("no redirect from latest alias (status %d)", res.StatusCode)
	}
	if res.Location == "" {
		return nil, errors.New("redirect carries no location")
	}

	candidate, err := probe.Parse(res.Location)
	if err != nil {
		return nil, errors.Wrapf(err, "bad redirect location %q", res.Location)
	}
	// A mirror may redirect the alias to itself. Reachability is checked
	// either way, so a no-op redirect to a dead file is still a failure.
	if err := r.reachable(candidate); err != nil {
		return nil, errors.Wrapf(err, "redirect target %s unreachable", candidate)
	}
	return candidate, nil
}

// scrapeListing implements tier 2: fetch the directory index and pick the
// newest dated snapshot named in it.
func (r *Resolver) scrapeListing(base *url.URL, edition string) (*url.URL, error) {
	body, err := r.getter.Get(base.String(), r.opts...)
	if err != nil {
		return nil, errors.Wrap(err, "directory listing fetch failed")
	}

	pattern := zim.PatternFor(edition)
	seen := map[string]bool{}
	var names []zim.Name
	for _, match := range pattern.FindAllString(body.String(), -1) {
		if seen[match] {
			continue
		}
		seen[match] = true
		n, err := zim.ParseFor(edition, match)
		if err != nil {
			continue
		}
		names = append(names, n)
	}

	latest, ok := zim.Latest(names)
	if !ok {
		return nil, errors.Errorf("directory listing names no %s snapshots", edition)
	}

	candidate := base.JoinPath(latest.Filename())
	if err := r.reachable(candidate); err != nil {
		return nil, errors.Wrapf(err, "listed snapshot %s unreachable", candidate)
	}
	return candidate, nil
}

// reachable confirms a candidate answers metadata requests, following at most
// a few redirect hops by hand since Probe never follows them itself.
func (r *Resolver) reachable(u *url.URL) error {
	const maxHops = 4

	href := u
	for hop := 0; hop < maxHops; hop++ {
		res, err := r.getter.Probe(href.String(), r.opts...)
		if err != nil {
			return err
		}
		switch {
		case res.StatusCode >= 200 && res.StatusCode < 300:
			return nil
		case res.StatusCode >= 300 && res.StatusCode < 400 && res.Location != "":
			next, err := href.Parse(res.Location)
			if err != nil {
				return errors.Wrapf(err, "bad redirect location %q", res.Location)
			}
			href = next
		case res.StatusCode == http.StatusNotFound:
			return errors.Errorf("%s not found", href)
		default:
			return errors.Errorf("unexpected status %d for %s", res.StatusCode, href)
		}
	}
	return errors.Errorf("too many redirects while checking %s", u)
}
