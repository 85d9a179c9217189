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

package downloader

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/zimtools/zimsync/internal/fileutil"
	"github.com/zimtools/zimsync/pkg/digest"
	"github.com/zimtools/zimsync/pkg/getter"
	"github.com/zimtools/zimsync/pkg/zim"
)

// SnapshotDownloader handles downloading a snapshot and its sidecars.
//
// Every transfer goes to a staging path first and is digest-verified before
// it is promoted to its published name.
type SnapshotDownloader struct {
	// Getter performs all network fetches.
	Getter getter.Getter
	// Options is the transfer policy applied to each fetch.
	Options []getter.Option
	// GrabTorrent enables the best-effort torrent sidecar fetch.
	GrabTorrent bool
}

// DigestMismatchError reports a staged file whose computed digest does not
// match the published checksum.
type DigestMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("digest mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// DownloadTo retrieves the snapshot at u into destDir and returns the path of
// the verified, published file.
//
// The snapshot is staged under a ".part" name, resumed if a previous run left
// a partial file, verified against the mirror's checksum sidecar, and only
// then renamed to its dated name. A staged file that fails verification is
// deleted, never left on disk. The torrent sidecar, when requested, is best
// effort: its failure is logged and does not affect the result.
func (d *SnapshotDownloader) DownloadTo(u *url.URL, destDir string) (string, error) {
	name := path.Base(u.Path)
	if _, err := zim.Parse(name); err != nil {
		return "", errors.Wrapf(err, "refusing to download %q", u)
	}
	final, err := securejoin.SecureJoin(destDir, name)
	if err != nil {
		return "", errors.Wrapf(err, "unsafe snapshot name %q", name)
	}
	staged := final + zim.StagingExt

	log := logrus.WithField("snapshot", name)

	log.Infof("downloading %s", u)
	written, err := d.Getter.Download(u.String(), staged, d.Options...)
	if err != nil {
		return "", errors.Wrapf(err, "transfer of %s failed", u)
	}
	log.Debugf("wrote %d bytes to %s", written, staged)

	expected, err := d.fetchChecksum(u)
	if err != nil {
		return "", err
	}

	log.Info("verifying staged snapshot")
	actual, err := digest.DigestFile(staged)
	if err != nil {
		return "", errors.Wrap(err, "could not digest staged file")
	}
	if actual != expected {
		// A corrupt staging file must not survive to be resumed or
		// mistaken for good data by a later run.
		os.Remove(staged)
		return "", &DigestMismatchError{Path: staged, Expected: expected, Actual: actual}
	}

	if err := os.Rename(staged, final); err != nil {
		return "", errors.Wrap(err, "could not promote staged file")
	}
	sidecar := expected + "  " + name + "\n"
	if err := fileutil.AtomicWriteFile(final+zim.ChecksumExt, strings.NewReader(sidecar), 0644); err != nil {
		return "", errors.Wrap(err, "could not write checksum sidecar")
	}

	if d.GrabTorrent {
		if err := d.fetchTorrent(u, final); err != nil {
			log.Warnf("torrent sidecar unavailable: %v", err)
		}
	}
	return final, nil
}

func (d *SnapshotDownloader) fetchChecksum(u *url.URL) (string, error) {
	href := u.String() + zim.ChecksumExt
	body, err := d.Getter.Get(href, d.Options...)
	if err != nil {
		return "", errors.Wrapf(err, "could not fetch checksum %s", href)
	}
	sum, err := digest.ParseChecksum(body.Bytes())
	if err != nil {
		return "", errors.Wrapf(err, "bad checksum sidecar at %s", href)
	}
	return sum, nil
}

func (d *SnapshotDownloader) fetchTorrent(u *url.URL, final string) error {
	body, err := d.Getter.Get(u.String()+zim.TorrentExt, d.Options...)
	if err != nil {
		return err
	}
	return fileutil.AtomicWriteFile(final+zim.TorrentExt, body, 0644)
}

// VerifyFile checks a published snapshot against its checksum sidecar and
// returns a DigestMismatchError when the digests disagree.
func VerifyFile(snapshot, sidecar string) error {
	data, err := os.ReadFile(sidecar)
	if err != nil {
		return errors.Wrap(err, "could not read checksum sidecar")
	}
	expected, err := digest.ParseChecksum(data)
	if err != nil {
		return err
	}
	actual, err := digest.DigestFile(snapshot)
	if err != nil {
		return err
	}
	if actual != expected {
		return &DigestMismatchError{Path: snapshot, Expected: expected, Actual: actual}
	}
	return nil
}
