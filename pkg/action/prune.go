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
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/zimtools/zimsync/pkg/zim"
)

// Prune is the action for bounding disk usage.
//
// It provides the implementation of 'zimsync prune': keep the K newest dated
// snapshots of the edition, delete the rest together with their sidecars.
type Prune struct {
	cfg *Configuration
}

// NewPrune creates a new Prune object with the given configuration.
func NewPrune(cfg *Configuration) *Prune {
	return &Prune{cfg: cfg}
}

// Run takes the run lock and prunes. It returns the names of the removed
// snapshots.
func (p *Prune) Run() ([]string, error) {
	if !p.cfg.Settings.DryRun {
		unlock, err := p.cfg.lockDestDir(p.cfg.Settings.DestDir)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}
	return p.run()
}

// run prunes without taking the lock; Pull calls it while already holding it.
func (p *Prune) run() ([]string, error) {
	settings := p.cfg.Settings
	if settings.Edition == "" {
		return nil, errors.New("no edition configured")
	}
	// Keeping fewer than one snapshot would delete the alias target.
	if settings.KeepVersions < 1 {
		return nil, errors.Errorf("keep-versions must be at least 1, got %d", settings.KeepVersions)
	}

	entries, err := os.ReadDir(settings.DestDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	type candidate struct {
		name  zim.Name
		mtime time.Time
	}

	// Cheap glob first, then the strict parse that rejects the alias, the
	// staging files and foreign editions.
	pattern := glob.MustCompile(settings.Edition + "_*" + zim.Ext)
	var candidates []candidate
	for _, entry := range entries {
		if entry.IsDir() || !pattern.Match(entry.Name()) {
			continue
		}
		n, err := zim.ParseFor(settings.Edition, entry.Name())
		if err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate{name: n, mtime: info.ModTime()})
	}

	if len(candidates) <= settings.KeepVersions {
		return nil, nil
	}

	// Newest first by modification time; date stamp breaks ties.
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].mtime.Equal(candidates[j].mtime) {
			return candidates[i].mtime.After(candidates[j].mtime)
		}
		return candidates[j].name.Date.Before(candidates[i].name.Date)
	})

	var pruned []string
	for _, c := range candidates[settings.KeepVersions:] {
		file := filepath.Join(settings.DestDir, c.name.Filename())
		if err := p.cfg.Ops.Remove(file); err != nil && !os.IsNotExist(err) {
			return pruned, errors.Wrapf(err, "could not prune %s", c.name)
		}
		// Sidecars may never have been fetched; their absence is fine.
		for _, sidecar := range []string{c.name.ChecksumFilename(), c.name.TorrentFilename()} {
			if err := p.cfg.Ops.Remove(filepath.Join(settings.DestDir, sidecar)); err != nil && !os.IsNotExist(err) {
				return pruned, errors.Wrapf(err, "could not prune sidecar %s", sidecar)
			}
		}
		logrus.Infof("pruned %s", c.name)
		pruned = append(pruned, c.name.Filename())
	}
	return pruned, nil
}
