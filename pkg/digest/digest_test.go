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

package digest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// sha256("hello\n")
const helloSum = "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03"

func TestDigest(t *testing.T) {
	sum, err := Digest(strings.NewReader("hello\n"))
	if err != nil {
		t.Fatal(err)
	}
	if sum != helloSum {
		t.Errorf("sum = %s, want %s", sum, helloSum)
	}
}

func TestDigestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(path, []byte("hello\n"), 0644); err != nil {
		t.Fatal(err)
	}
	sum, err := DigestFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if sum != helloSum {
		t.Errorf("sum = %s, want %s", sum, helloSum)
	}

	if _, err := DigestFile(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestParseChecksum(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{helloSum + "  wikipedia_en_all_maxi_2025-03.zim\n", helloSum, false},
		{strings.ToUpper(helloSum) + " file", helloSum, false},
		{helloSum, helloSum, false},
		{helloSum + "\nsecond line is ignored", helloSum, false},
		{"", "", true},
		{"   \n", "", true},
		{"not-a-digest  file\n", "", true},
		{helloSum[:40] + "  truncated\n", "", true},
	}

	for _, tt := range tests {
		got, err := ParseChecksum([]byte(tt.in))
		if tt.err {
			if err == nil {
				t.Errorf("ParseChecksum(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseChecksum(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseChecksum(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
