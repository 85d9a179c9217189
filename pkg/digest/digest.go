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

// Package digest computes and parses the SHA-256 checksums that guard
// snapshot integrity.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// DigestFile calculates the SHA-256 sum of a file.
//
// It takes the path to the file, and returns a lowercase hex representation
// of the sum.
func DigestFile(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Digest(f)
}

// Digest hashes a reader and returns a SHA-256 digest.
func Digest(in io.Reader) (string, error) {
	hash := sha256.New()
	if _, err := io.Copy(hash, in); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

var hexRe = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// ParseChecksum extracts the expected digest from the contents of a checksum
// sidecar, as produced by sha256sum: the first whitespace-delimited token of
// the first line. The rest of the file (usually a filename) is ignored.
func ParseChecksum(data []byte) (string, error) {
	line := string(data)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", errors.New("checksum sidecar is empty")
	}
	sum := fields[0]
	if !hexRe.MatchString(sum) {
		return "", errors.Errorf("checksum sidecar does not start with a SHA-256 digest: %q", sum)
	}
	return strings.ToLower(sum), nil
}
