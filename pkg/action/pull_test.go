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
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zimtools/zimsync/pkg/cli"
	"github.com/zimtools/zimsync/pkg/downloader"
	"github.com/zimtools/zimsync/pkg/zim"
)

const (
	testEdition = "wikipedia_en_all_maxi"
	testDated   = testEdition + "_2025-03.zim"
)

// testMirror is an httptest mirror publishing one dated snapshot behind the
// latest alias. downloads counts GET requests for the snapshot body.
type testMirror struct {
	srv       *httptest.Server
	downloads int
}

func newTestMirror(t *testing.T, content []byte, correctSum bool) *testMirror {
	t.Helper()

	m := &testMirror{}
	sum := sha256.Sum256(content)
	digest := hex.EncodeToString(sum[:])
	if !correctSum {
		digest = "deadbeef" + digest[8:]
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/"+testEdition+"_latest.zim", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/"+testDated, http.StatusFound)
	})
	mux.HandleFunc("/"+testDated, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			m.downloads++
		}
		w.Write(content)
	})
	mux.HandleFunc("/"+testDated+".sha256", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s  %s\n", digest, testDated)
	})
	m.srv = httptest.NewServer(mux)
	t.Cleanup(m.srv.Close)
	return m
}

func testConfig(t *testing.T, mirrorURL, destDir string) *Configuration {
	t.Helper()

	settings := &cli.EnvSettings{
		DestDir:      destDir,
		Edition:      testEdition,
		Mirror:       mirrorURL,
		KeepVersions: 2,
		FetchOpts:    "--location --fail",
	}
	cfg := new(Configuration)
	require.NoError(t, cfg.Init(settings))
	return cfg
}

func TestPullPublishes(t *testing.T) {
	content := []byte("zim snapshot payload")
	m := newTestMirror(t, content, true)
	dest := t.TempDir()
	cfg := testConfig(t, m.srv.URL, dest)

	res, err := NewPull(cfg).Run()
	require.NoError(t, err)
	assert.False(t, res.UpToDate)
	assert.Equal(t, filepath.Join(dest, testDated), res.Snapshot)
	assert.Empty(t, res.Pruned)

	got, err := os.ReadFile(res.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// The alias is a relative symlink to the bare snapshot name.
	target, err := os.Readlink(filepath.Join(dest, zim.AliasFilename(testEdition)))
	require.NoError(t, err)
	assert.Equal(t, testDated, target)

	require.NoError(t, downloader.VerifyFile(res.Snapshot, res.Snapshot+zim.ChecksumExt))
}

func TestPullIdempotent(t *testing.T) {
	m := newTestMirror(t, []byte("payload"), true)
	dest := t.TempDir()
	cfg := testConfig(t, m.srv.URL, dest)

	_, err := NewPull(cfg).Run()
	require.NoError(t, err)
	require.Equal(t, 1, m.downloads)

	res, err := NewPull(cfg).Run()
	require.NoError(t, err)
	assert.True(t, res.UpToDate)
	assert.Equal(t, 1, m.downloads, "a verified published snapshot must not be downloaded again")
	assert.Empty(t, res.Pruned)
}

func TestPullDigestMismatch(t *testing.T) {
	m := newTestMirror(t, []byte("corrupt payload"), false)
	dest := t.TempDir()
	cfg := testConfig(t, m.srv.URL, dest)

	_, err := NewPull(cfg).Run()
	var mismatch *downloader.DigestMismatchError
	require.True(t, errors.As(err, &mismatch), "got %v", err)

	_, err = os.Lstat(filepath.Join(dest, zim.AliasFilename(testEdition)))
	assert.True(t, os.IsNotExist(err), "alias must not change on integrity failure")
	_, err = os.Stat(filepath.Join(dest, testDated+zim.StagingExt))
	assert.True(t, os.IsNotExist(err), "staged file must be deleted on integrity failure")
	_, err = os.Stat(filepath.Join(dest, testDated))
	assert.True(t, os.IsNotExist(err), "corrupt snapshot must not be published")
}

func TestPullDryRun(t *testing.T) {
	m := newTestMirror(t, []byte("payload"), true)
	dest := t.TempDir()
	cfg := testConfig(t, m.srv.URL, dest)
	cfg.Settings.DryRun = true
	cfg.Ops = NewOps(true)

	res, err := NewPull(cfg).Run()
	require.NoError(t, err)
	assert.Equal(t, 0, m.downloads, "dry run must not transfer the snapshot")

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries, "dry run must not touch the destination directory")
	assert.Equal(t, m.srv.URL+"/"+testDated, res.URL)
}

func TestPullRunsRetentionAfterPublish(t *testing.T) {
	m := newTestMirror(t, []byte("payload"), true)
	dest := t.TempDir()
	cfg := testConfig(t, m.srv.URL, dest)

	// Two stale snapshots already on disk; with KeepVersions=2 the new pull
	// must push the oldest out.
	writeSnapshot(t, dest, testEdition+"_2024-07.zim", time.Now().Add(-48*time.Hour))
	writeSnapshot(t, dest, testEdition+"_2024-11.zim", time.Now().Add(-24*time.Hour))

	res, err := NewPull(cfg).Run()
	require.NoError(t, err)
	assert.Equal(t, []string{testEdition + "_2024-07.zim"}, res.Pruned)

	_, err = os.Stat(filepath.Join(dest, testEdition+"_2024-11.zim"))
	assert.NoError(t, err, "the second-newest snapshot stays inside the window")
	_, err = os.Stat(res.Snapshot)
	assert.NoError(t, err, "retention must never remove the snapshot just published")
}

func writeSnapshot(t *testing.T, dir, name string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("old "+name), 0644))
	require.NoError(t, os.WriteFile(path+zim.ChecksumExt, []byte("0000  "+name+"\n"), 0644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}
