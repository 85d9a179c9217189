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

const verifyDesc = `
Recompute the SHA-256 digest of a published snapshot and compare it to its
checksum sidecar. Without an argument the snapshot the current alias points
at is verified.
`

func newVerifyCmd(cfg *action.Configuration, out io.Writer) *cobra.Command {
	client := action.NewVerify(cfg)

	return &cobra.Command{
		Use:   "verify [SNAPSHOT]",
		Short: "verify a published snapshot against its checksum sidecar",
		Long:  verifyDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				client.Snapshot = args[0]
			}
			path, err := client.Run()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: ok\n", path)
			return nil
		},
	}
}
