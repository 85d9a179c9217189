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

package mirror

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirrors.yaml")
	content := `mirrors:
  - name: kiwix
    url: https://download.kiwix.org/zim/wikipedia
  - url: https://mirror.example/zim
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Mirrors) != 2 {
		t.Fatalf("got %d mirrors", len(f.Mirrors))
	}
	if f.Mirrors[0].Name != "kiwix" {
		t.Errorf("first mirror = %v, list order is priority order", f.Mirrors[0])
	}
	if f.Mirrors[1].String() != "https://mirror.example/zim" {
		t.Errorf("unnamed mirror should stringify to its URL, got %q", f.Mirrors[1])
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "mirrors.yaml")
	if err := os.WriteFile(path, []byte("mirrors:\n  - name: nourl\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for an entry without a url")
	}
}

func TestFromURLs(t *testing.T) {
	ms := FromURLs("https://a.example", "", "  ", "https://b.example")
	if len(ms) != 2 {
		t.Fatalf("got %d mirrors: %v", len(ms), ms)
	}
	if ms[0].URL != "https://a.example" || ms[1].URL != "https://b.example" {
		t.Errorf("unexpected mirrors: %v", ms)
	}
}
