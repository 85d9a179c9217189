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

	"github.com/sirupsen/logrus"

	"github.com/zimtools/zimsync/internal/fileutil"
)

// Ops is the side-effecting surface of an action: every filesystem mutation
// outside the transfer itself goes through it, so a dry run can substitute an
// implementation that logs each step instead of executing it.
type Ops interface {
	// Remove deletes a file.
	Remove(name string) error
	// Symlink atomically points linkname at target.
	Symlink(target, linkname string) error
}

// NewOps returns the live implementation, or the logging one when dryRun is
// set.
func NewOps(dryRun bool) Ops {
	if dryRun {
		return dryRunOps{}
	}
	return liveOps{}
}

type liveOps struct{}

func (liveOps) Remove(name string) error { return os.Remove(name) }

func (liveOps) Symlink(target, linkname string) error {
	return fileutil.SymlinkAtomic(target, linkname)
}

type dryRunOps struct{}

func (dryRunOps) Remove(name string) error {
	logrus.Infof("dry-run: would remove %s", name)
	return nil
}

func (dryRunOps) Symlink(target, linkname string) error {
	logrus.Infof("dry-run: would point %s at %s", linkname, target)
	return nil
}
