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
	"github.com/pkg/errors"

	"github.com/zimtools/zimsync/pkg/resolver"
)

// Resolve is the action for printing the URL of the latest snapshot without
// downloading anything.
//
// It provides the implementation of 'zimsync resolve'.
type Resolve struct {
	cfg *Configuration
}

// NewResolve creates a new Resolve object with the given configuration.
func NewResolve(cfg *Configuration) *Resolve {
	return &Resolve{cfg: cfg}
}

// Run resolves and returns the latest snapshot URL.
func (r *Resolve) Run() (string, error) {
	settings := r.cfg.Settings
	if settings.Edition == "" {
		return "", errors.New("no edition configured")
	}
	mirrors, err := settings.Mirrors()
	if err != nil {
		return "", err
	}
	u, err := resolver.New(r.cfg.Getter, r.cfg.getterOptions...).Resolve(mirrors, settings.Edition)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
