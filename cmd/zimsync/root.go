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

package main

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zimtools/zimsync/pkg/action"
)

var globalUsage = `zimsync keeps a local rotation of ZIM snapshots in sync with a mirror.

Each run resolves the mirror's "latest" indirection to the newest dated
snapshot, downloads it with resume support, verifies it against the published
SHA-256 checksum, publishes it under its dated name, points the
{edition}_current.zim alias at it and prunes snapshots beyond the retention
window.

Configuration comes from the environment (DEST_DIR, EDITION, MIRROR,
FALLBACK_MIRROR, KEEP_VERSIONS, GRAB_TORRENT, FETCH_OPTS, DRY_RUN) and can be
overridden per flag.

Exit status is 0 on success, 2 when no mirror resolved a snapshot, 3 when the
downloaded file failed checksum verification, and 1 for any other failure.
`

func newRootCmd(actionConfig *action.Configuration, out io.Writer, args []string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "zimsync",
		Short:         "mirror the latest ZIM snapshot of an edition",
		Long:          globalUsage,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(settings.Debug)
			return actionConfig.Init(settings)
		},
	}
	flags := cmd.PersistentFlags()

	settings.AddFlags(flags)

	// We can safely ignore any errors that flags.Parse encounters since
	// those errors will be caught later during the call to cmd.Execution.
	// This call is required to gather configuration information prior to
	// execution.
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.Parse(args)

	cmd.AddCommand(
		newPullCmd(actionConfig, out),
		newResolveCmd(actionConfig, out),
		newPruneCmd(actionConfig, out),
		newVerifyCmd(actionConfig, out),
		newVersionCmd(out),
	)

	return cmd
}

func setupLogging(debug bool) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
}
