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
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zimtools/zimsync/pkg/action"
)

const pullDesc = `
Run the full pipeline once: resolve the latest dated snapshot for the edition,
download it to a staging path (resuming a previous partial transfer), verify
it against the published SHA-256 checksum, publish it under its dated name,
point the current alias at it, and prune snapshots beyond the retention
window.

A snapshot that is already published and verified is not downloaded again.
With --dry-run the intended mutations are logged and nothing is changed.
`

func newPullCmd(cfg *action.Configuration, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:     "pull",
		Short:   "fetch, verify and publish the latest snapshot",
		Aliases: []string{"fetch"},
		Long:    pullDesc,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := action.NewPull(cfg).Run()
			if err != nil {
				return err
			}
			if res.UpToDate {
				fmt.Fprintf(out, "%s is up to date\n", res.Snapshot)
			} else {
				fmt.Fprintf(out, "published %s\n", res.Snapshot)
			}
			for _, name := range res.Pruned {
				fmt.Fprintf(out, "pruned %s\n", name)
			}
			return nil
		},
	}
}
