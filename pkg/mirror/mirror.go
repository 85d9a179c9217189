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

// Package mirror models the ordered list of mirrors a run may fetch from.
package mirror

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// Mirror is one base URL snapshots can be fetched from. Mirrors are immutable
// once loaded; their priority is their position in the list.
type Mirror struct {
	// Name is an optional label used in log output.
	Name string `json:"name,omitempty"`
	// URL is the base URL containing the edition's snapshot directory.
	URL string `json:"url"`
}

// File represents the mirrors.yaml configuration file.
type File struct {
	Mirrors []Mirror `json:"mirrors"`
}

// LoadFile reads a mirrors file from disk.
func LoadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't load mirrors file (%s)", path)
	}
	f := &File{}
	if err := yaml.Unmarshal(b, f); err != nil {
		return nil, errors.Wrapf(err, "couldn't parse mirrors file (%s)", path)
	}
	for i, m := range f.Mirrors {
		if strings.TrimSpace(m.URL) == "" {
			return nil, errors.Errorf("mirrors file (%s): entry %d has no url", path, i)
		}
	}
	return f, nil
}

// FromURLs builds an ordered mirror list from bare base URLs, skipping empty
// entries.
func FromURLs(urls ...string) []Mirror {
	var ms []Mirror
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		ms = append(ms, Mirror{URL: u})
	}
	return ms
}

func (m Mirror) String() string {
	if m.Name != "" {
		return m.Name
	}
	return m.URL
}
