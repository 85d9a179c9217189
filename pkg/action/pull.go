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

package action

import (
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/zimtools/zimsync/pkg/downloader"
	"github.com/zimtools/zimsync/pkg/resolver"
	"github.com/zimtools/zimsync/pkg/zim"
)

// Pull is the action for one full mirror-to-disk run.
//
// It provides the implementation of 'zimsync pull': resolve the latest
// snapshot, download and verify it, publish it under its dated name, point
// the current alias at it, and prune the retention window. Retention runs
// strictly after publication, so the alias target is always inside the kept
// window.
type Pull struct {
	cfg *Configuration
}

// NewPull creates a new Pull object with the given configuration.
func NewPull(cfg *Configuration) *Pull {
	return &Pull{cfg: cfg}
}

// Result describes what a pull run did.
type Result struct {
	// URL is the resolved snapshot URL.
	URL string
	// Snapshot is the path of the published snapshot.
	Snapshot string
	// UpToDate is set when the snapshot was already published and verified,
	// so no download happened.
	UpToDate bool
	// Pruned lists the snapshots removed by retention.
	Pruned []string
}

// Run executes the pipeline.
func (p *Pull) Run() (*Result, error) {
	settings := p.cfg.Settings
	if settings.Edition == "" {
		return nil, errors.New("no edition configured")
	}
	mirrors, err := settings.Mirrors()
	if err != nil {
		return nil, err
	}

	u, err := resolver.New(p.cfg.Getter, p.cfg.getterOptions...).Resolve(mirrors, settings.Edition)
	if err != nil {
		return nil, err
	}
	name, err := zim.ParseFor(settings.Edition, path.Base(u.Path))
	if err != nil {
		return nil, errors.Wrapf(err, "resolved URL %s does not name a dated snapshot", u)
	}
	logrus.WithField("edition", settings.Edition).Infof("resolved latest snapshot to %s", u)

	result := &Result{URL: u.String()}
	final := filepath.Join(settings.DestDir, name.Filename())

	if settings.DryRun {
		return p.dryRun(u, name, final, result)
	}

	unlock, err := p.cfg.lockDestDir(settings.DestDir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if publishedAndVerified(final) {
		logrus.Infof("%s already published and verified, skipping download", name)
		result.UpToDate = true
		result.Snapshot = final
	} else {
		dl := &downloader.SnapshotDownloader{
			Getter:      p.cfg.Getter,
			Options:     p.cfg.getterOptions,
			GrabTorrent: settings.GrabTorrent,
		}
		result.Snapshot, err = dl.DownloadTo(u, settings.DestDir)
		if err != nil {
			return nil, err
		}
		logrus.Infof("published %s", result.Snapshot)
	}

	if err := p.pointAlias(name); err != nil {
		return nil, errors.Wrap(err, "could not update current alias")
	}

	result.Pruned, err = NewPrune(p.cfg).run()
	if err != nil {
		return nil, err
	}
	return result, nil
}

// dryRun reports the mutations a live run would perform. Resolution already
// happened; everything from here on is read-only.
func (p *Pull) dryRun(u *url.URL, name zim.Name, final string, result *Result) (*Result, error) {
	settings := p.cfg.Settings

	if publishedAndVerified(final) {
		logrus.Infof("dry-run: %s already published and verified, no download needed", name)
		result.UpToDate = true
	} else {
		logrus.Infof("dry-run: would download %s to %s", u, final+zim.StagingExt)
		logrus.Infof("dry-run: would verify against %s", u.String()+zim.ChecksumExt)
		if settings.GrabTorrent {
			logrus.Infof("dry-run: would fetch %s", u.String()+zim.TorrentExt)
		}
		logrus.Infof("dry-run: would publish %s", final)
	}
	result.Snapshot = final

	alias := filepath.Join(settings.DestDir, zim.AliasFilename(settings.Edition))
	if err := p.cfg.Ops.Symlink(name.Filename(), alias); err != nil {
		return nil, err
	}

	pruned, err := NewPrune(p.cfg).run()
	if err != nil {
		return nil, err
	}
	result.Pruned = pruned
	return result, nil
}

// publishedAndVerified reports whether the dated snapshot already exists
// locally and matches its checksum sidecar, which lets a rerun short-circuit
// the transfer.
func publishedAndVerified(final string) bool {
	if _, err := os.Stat(final); err != nil {
		return false
	}
	return downloader.VerifyFile(final, final+zim.ChecksumExt) == nil
}

func (p *Pull) pointAlias(name zim.Name) error {
	settings := p.cfg.Settings
	alias := filepath.Join(settings.DestDir, zim.AliasFilename(settings.Edition))

	// The alias target is the bare filename, so the symlink survives the
	// destination directory being moved or remounted elsewhere.
	if target, err := os.Readlink(alias); err == nil && target == name.Filename() {
		return nil
	}
	logrus.Infof("pointing %s at %s", zim.AliasFilename(settings.Edition), name.Filename())
	return p.cfg.Ops.Symlink(name.Filename(), alias)
}
