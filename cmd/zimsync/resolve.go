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

const resolveDesc = `
Print the URL of the newest dated snapshot for the edition without
downloading anything. Mirrors are tried in order; the first one that answers
via redirect or directory listing wins.
`

func newResolveCmd(cfg *action.Configuration, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "print the URL of the latest snapshot",
		Long:  resolveDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := action.NewResolve(cfg).Run()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, u)
			return nil
		},
	}
}
