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

const pruneDesc = `
Delete dated snapshots of the edition beyond the retention window, oldest
first by modification time, together with their checksum and torrent
sidecars. The current alias and in-flight staging files are never candidates.
`

func newPruneCmd(cfg *action.Configuration, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "remove snapshots beyond the retention window",
		Long:  pruneDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pruned, err := action.NewPrune(cfg).Run()
			if err != nil {
				return err
			}
			if len(pruned) == 0 {
				fmt.Fprintln(out, "nothing to prune")
				return nil
			}
			for _, name := range pruned {
				fmt.Fprintf(out, "pruned %s\n", name)
			}
			return nil
		},
	}
}
