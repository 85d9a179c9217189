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

/*Package action contains the implementation of the zimsync commands.

Each command is an action struct (Pull, Resolve, Prune, Verify) holding a
shared Configuration. The Configuration is built once at startup from the
environment settings; actions never consult the environment themselves.
*/
package action

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	"github.com/zimtools/zimsync/internal/version"
	"github.com/zimtools/zimsync/pkg/cli"
	"github.com/zimtools/zimsync/pkg/getter"
)

// lockFilename is created under the destination directory to exclude
// overlapping scheduler runs.
const lockFilename = ".zimsync.lock"

// Configuration injects the dependencies that all actions share.
type Configuration struct {
	// Settings is the immutable run configuration.
	Settings *cli.EnvSettings
	// Getter performs all network fetches.
	Getter getter.Getter
	// Ops performs (or, in dry-run mode, logs) filesystem mutations.
	Ops Ops

	getterOptions []getter.Option
}

// Init sets up the Configuration from the given settings.
func (c *Configuration) Init(settings *cli.EnvSettings) error {
	topts, err := settings.TransferOptions()
	if err != nil {
		return err
	}

	g, err := getter.NewHTTPGetter()
	if err != nil {
		return err
	}

	c.Settings = settings
	c.Getter = g
	c.Ops = NewOps(settings.DryRun)
	// --fail needs no option: the getter always treats non-2xx as an error.
	c.getterOptions = []getter.Option{
		getter.WithUserAgent(version.GetUserAgent()),
		getter.WithFollowRedirects(topts.FollowRedirects),
		getter.WithRetries(topts.Retries),
		getter.WithRetryDelay(topts.RetryDelay),
		getter.WithConnectTimeout(topts.ConnectTimeout),
	}
	return nil
}

// lockDestDir takes the advisory run lock under dir. The returned release
// function must be called when the run's filesystem work is done.
func (c *Configuration) lockDestDir(dir string) (func() error, error) {
	if err := os.MkdirAll(dir, 0755); err != nil && !os.IsExist(err) {
		return nil, err
	}

	fileLock := flock.New(filepath.Join(dir, lockFilename))
	lockCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, time.Second)
	if err != nil {
		return nil, errors.Wrap(err, "could not lock destination directory")
	}
	if !locked {
		return nil, errors.Errorf("another run holds the lock on %s", dir)
	}
	return fileLock.Unlock, nil
}
