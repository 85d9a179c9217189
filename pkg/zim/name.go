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

/*Package zim models the naming scheme of dated ZIM snapshots.

A published snapshot is named "{edition}_{YYYY-MM}.zim". Next to it live a
".sha256" checksum sidecar and an optional ".torrent" sidecar. The stable
alias for an edition is "{edition}_current.zim", and in-flight downloads use a
".part" suffix so they are never mistaken for a completed snapshot.
*/
package zim

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

const (
	// Ext is the snapshot file extension.
	Ext = ".zim"
	// ChecksumExt is appended to a snapshot name for its checksum sidecar.
	ChecksumExt = ".sha256"
	// TorrentExt is appended to a snapshot name for its torrent sidecar.
	TorrentExt = ".torrent"
	// StagingExt is appended to a snapshot name while it is downloading.
	StagingExt = ".part"
)

// Date is the year-month version stamp of a snapshot.
type Date struct {
	Year  int
	Month int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
}

// Before reports whether d is an older stamp than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	return d.Month < other.Month
}

// Name identifies one dated snapshot of an edition.
type Name struct {
	Edition string
	Date    Date
}

// Filename returns the published snapshot filename.
func (n Name) Filename() string {
	return n.Edition + "_" + n.Date.String() + Ext
}

// ChecksumFilename returns the checksum sidecar filename.
func (n Name) ChecksumFilename() string {
	return n.Filename() + ChecksumExt
}

// TorrentFilename returns the torrent sidecar filename.
func (n Name) TorrentFilename() string {
	return n.Filename() + TorrentExt
}

func (n Name) String() string { return n.Filename() }

// AliasFilename returns the stable alias filename for an edition.
func AliasFilename(edition string) string {
	return edition + "_current" + Ext
}

// LatestFilename returns the well-known latest-indirection filename for an
// edition, as published by mirrors.
func LatestFilename(edition string) string {
	return edition + "_latest" + Ext
}

var nameRe = regexp.MustCompile(`^(.+)_(\d{4})-(\d{2})\.zim$`)

// Parse splits a snapshot filename into its edition and date. The edition may
// itself contain underscores, so the date is anchored at the end.
func Parse(filename string) (Name, error) {
	m := nameRe.FindStringSubmatch(filename)
	if m == nil {
		return Name{}, errors.Errorf("%q is not a dated snapshot name", filename)
	}
	year, _ := strconv.Atoi(m[2])
	month, err := strconv.Atoi(m[3])
	if err != nil || month < 1 || month > 12 {
		return Name{}, errors.Errorf("%q has an invalid month stamp", filename)
	}
	return Name{Edition: m[1], Date: Date{Year: year, Month: month}}, nil
}

// ParseFor parses filename and requires it to belong to the given edition.
func ParseFor(edition, filename string) (Name, error) {
	n, err := Parse(filename)
	if err != nil {
		return Name{}, err
	}
	if n.Edition != edition {
		return Name{}, errors.Errorf("%q does not belong to edition %q", filename, edition)
	}
	return n, nil
}

// PatternFor returns a regexp matching dated snapshot filenames of an edition
// wherever they occur in a larger text, such as a directory index page.
func PatternFor(edition string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(edition) + `_(\d{4})-(\d{2})\.zim`)
}

// SortByDate orders names oldest first. Ordering is by parsed year and month,
// never lexicographic.
func SortByDate(names []Name) {
	sort.Slice(names, func(i, j int) bool {
		return names[i].Date.Before(names[j].Date)
	})
}

// Latest returns the newest name by date stamp, or false when names is empty.
func Latest(names []Name) (Name, bool) {
	if len(names) == 0 {
		return Name{}, false
	}
	latest := names[0]
	for _, n := range names[1:] {
		if latest.Date.Before(n.Date) {
			latest = n
		}
	}
	return latest, true
}
