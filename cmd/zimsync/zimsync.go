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

package main // import "github.com/zimtools/zimsync/cmd/zimsync"

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/zimtools/zimsync/pkg/action"
	"github.com/zimtools/zimsync/pkg/cli"
	"github.com/zimtools/zimsync/pkg/downloader"
	"github.com/zimtools/zimsync/pkg/resolver"
)

var settings = cli.New()

// Exit statuses are distinct per failure class so a scheduler can tell a
// mirror outage from a corrupt download.
const (
	exitGeneric    = 1
	exitResolution = 2
	exitIntegrity  = 3
)

func main() {
	actionConfig := new(action.Configuration)
	cmd := newRootCmd(actionConfig, os.Stdout, os.Args[1:])
	if err := cmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(exitStatus(err))
	}
}

func exitStatus(err error) int {
	var mismatch *downloader.DigestMismatchError
	switch {
	case errors.Is(err, resolver.ErrNoMirrorResolved):
		return exitResolution
	case errors.As(err, &mismatch):
		return exitIntegrity
	}
	return exitGeneric
}
