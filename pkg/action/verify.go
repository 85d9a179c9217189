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

	"github.com/pkg/errors"

	"github.com/zimtools/zimsync/pkg/downloader"
	"github.com/zimtools/zimsync/pkg/zim"
)

// Verify is the action for re-checking a published snapshot against its
// checksum sidecar.
//
// It provides the implementation of 'zimsync verify'. With no explicit
// snapshot it verifies whatever the current alias points at.
type Verify struct {
	cfg *Configuration

	// Snapshot is the path of the file to verify; empty means the alias
	// target.
	Snapshot string
}

// NewVerify creates a new Verify object with the given configuration.
func NewVerify(cfg *Configuration) *Verify {
	return &Verify{cfg: cfg}
}

// Run verifies and returns the path of the checked snapshot.
func (v *Verify) Run() (string, error) {
	target := v.Snapshot
	if target == "" {
		settings := v.cfg.Settings
		if settings.Edition == "" {
			return "", errors.New("no edition configured")
		}
		alias := filepath.Join(settings.DestDir, zim.AliasFilename(settings.Edition))
		linked, err := os.Readlink(alias)
		if err != nil {
			return "", errors.Wrap(err, "could not read current alias")
		}
		if !filepath.IsAbs(linked) {
			linked = filepath.Join(settings.DestDir, linked)
		}
		target = linked
	}
	return target, downloader.VerifyFile(target, target+zim.ChecksumExt)
}
