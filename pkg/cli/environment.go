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

/*Package cli describes the operating environment for the zimsync CLI.

Settings are sourced from the environment once at startup and may be
overridden by flags; components receive the resulting immutable structure
instead of reading the environment themselves.
*/
package cli

import (
	"os"
	"strconv"
	"time"

	shellwords "github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/zimtools/zimsync/pkg/mirror"
)

// DefaultMirror is the canonical upstream for ZIM snapshots.
const DefaultMirror = "https://download.kiwix.org/zim/wikipedia"

// DefaultFetchOpts mirrors the curl invocation the tool replaces.
const DefaultFetchOpts = "--location --fail --retry 3 --retry-delay 5 --connect-timeout 30"

// EnvSettings describes all of the environment settings.
type EnvSettings struct {
	// DestDir is the root directory for published snapshots and the alias.
	DestDir string
	// Edition is the base name identifying the archive variant.
	Edition string
	// Mirror is the primary mirror base URL.
	Mirror string
	// FallbackMirror is tried when the primary mirror fails to resolve.
	FallbackMirror string
	// MirrorsConfig is the path to an optional mirrors.yaml; when set it
	// supersedes Mirror and FallbackMirror.
	MirrorsConfig string
	// KeepVersions is the retention window size.
	KeepVersions int
	// GrabTorrent enables the best-effort torrent sidecar fetch.
	GrabTorrent bool
	// FetchOpts is the curl-style transfer policy string.
	FetchOpts string
	// DryRun logs intended mutations without performing them.
	DryRun bool
	// Debug indicates whether zimsync is running in Debug mode.
	Debug bool
}

func New() *EnvSettings {
	env := &EnvSettings{
		DestDir:        envOr("DEST_DIR", "."),
		Edition:        os.Getenv("EDITION"),
		Mirror:         envOr("MIRROR", DefaultMirror),
		FallbackMirror: os.Getenv("FALLBACK_MIRROR"),
		MirrorsConfig:  os.Getenv("ZIMSYNC_MIRRORS_CONFIG"),
		KeepVersions:   envIntOr("KEEP_VERSIONS", 2),
		FetchOpts:      envOr("FETCH_OPTS", DefaultFetchOpts),
	}
	env.GrabTorrent, _ = strconv.ParseBool(os.Getenv("GRAB_TORRENT"))
	env.DryRun, _ = strconv.ParseBool(os.Getenv("DRY_RUN"))
	env.Debug, _ = strconv.ParseBool(os.Getenv("ZIMSYNC_DEBUG"))
	return env
}

// AddFlags binds flags to the given flagset.
func (s *EnvSettings) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&s.DestDir, "dest-dir", "d", s.DestDir, "root directory for published snapshots and the current alias")
	fs.StringVarP(&s.Edition, "edition", "e", s.Edition, "archive variant to mirror, e.g. wikipedia_en_all_maxi")
	fs.StringVar(&s.Mirror, "mirror", s.Mirror, "primary mirror base URL")
	fs.StringVar(&s.FallbackMirror, "fallback-mirror", s.FallbackMirror, "mirror tried when the primary fails to resolve")
	fs.StringVar(&s.MirrorsConfig, "mirrors-config", s.MirrorsConfig, "path to a mirrors.yaml listing mirrors in priority order")
	fs.IntVar(&s.KeepVersions, "keep-versions", s.KeepVersions, "number of dated snapshots to retain")
	fs.BoolVar(&s.GrabTorrent, "grab-torrent", s.GrabTorrent, "also fetch the torrent sidecar, best effort")
	fs.StringVar(&s.FetchOpts, "fetch-opts", s.FetchOpts, "curl-style transfer options")
	fs.BoolVar(&s.DryRun, "dry-run", s.DryRun, "log intended mutations without performing them")
	fs.BoolVar(&s.Debug, "debug", s.Debug, "enable verbose output")
}

// Mirrors returns the ordered mirror list for this run: the mirrors file when
// configured, the MIRROR/FALLBACK_MIRROR pair otherwise.
func (s *EnvSettings) Mirrors() ([]mirror.Mirror, error) {
	if s.MirrorsConfig != "" {
		f, err := mirror.LoadFile(s.MirrorsConfig)
		if err != nil {
			return nil, err
		}
		if len(f.Mirrors) == 0 {
			return nil, errors.Errorf("mirrors file (%s) lists no mirrors", s.MirrorsConfig)
		}
		return f.Mirrors, nil
	}
	ms := mirror.FromURLs(s.Mirror, s.FallbackMirror)
	if len(ms) == 0 {
		return nil, errors.New("no mirror configured")
	}
	return ms, nil
}

// TransferOptions is the parsed form of the curl-style FetchOpts string.
type TransferOptions struct {
	FollowRedirects bool
	FailOnError     bool
	Retries         int
	RetryDelay      time.Duration
	ConnectTimeout  time.Duration
}

// TransferOptions parses FetchOpts. The grammar is the curl subset the
// original deployment used: --location/-L, --fail/-f, --retry N,
// --retry-delay SECONDS, --connect-timeout SECONDS.
func (s *EnvSettings) TransferOptions() (TransferOptions, error) {
	opts := TransferOptions{}

	args, err := shellwords.Parse(s.FetchOpts)
	if err != nil {
		return opts, errors.Wrap(err, "malformed fetch options")
	}

	next := func(i int, flag string) (string, error) {
		if i+1 >= len(args) {
			return "", errors.Errorf("fetch options: %s needs a value", flag)
		}
		return args[i+1], nil
	}

	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "--location", "-L":
			opts.FollowRedirects = true
		case "--fail", "-f":
			opts.FailOnError = true
		case "--retry":
			v, err := next(i, arg)
			if err != nil {
				return opts, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return opts, errors.Errorf("fetch options: invalid retry count %q", v)
			}
			opts.Retries = n
			i++
		case "--retry-delay":
			v, err := next(i, arg)
			if err != nil {
				return opts, err
			}
			secs, err := strconv.Atoi(v)
			if err != nil || secs < 0 {
				return opts, errors.Errorf("fetch options: invalid retry delay %q", v)
			}
			opts.RetryDelay = time.Duration(secs) * time.Second
			i++
		case "--connect-timeout":
			v, err := next(i, arg)
			if err != nil {
				return opts, err
			}
			secs, err := strconv.Atoi(v)
			if err != nil || secs < 0 {
				return opts, errors.Errorf("fetch options: invalid connect timeout %q", v)
			}
			opts.ConnectTimeout = time.Duration(secs) * time.Second
			i++
		default:
			return opts, errors.Errorf("fetch options: unrecognized option %q", arg)
		}
	}
	return opts, nil
}

func envOr(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}

func envIntOr(name string, def int) int {
	if v, ok := os.LookupEnv(name); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
