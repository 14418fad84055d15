// filename.go holds every positional/regex rule of the NEON file naming
// grammar. Nothing outside this file should pattern-match file names.
package stacker

import (
	"path"
	"regexp"
	"strings"
)

// NEON.D##.SITE.DP#.#####.00#.<table>[.<detail>...].<stamp>.<ext>
var (
	reDomain    = regexp.MustCompile(`D[0-2][0-9]`)
	reSite      = regexp.MustCompile(`[.][A-Z]{4}[.]`)
	reDPID      = regexp.MustCompile(`DP[1-4][.][0-9]{5}[.]00[1-2]`)
	reMonth     = regexp.MustCompile(`[0-9]{4}-[0-9]{2}`)
	reStamp     = regexp.MustCompile(`20[0-9]{6}T[0-9]{6}Z`)
	rePositions = regexp.MustCompile(`[.][0-9]{3}[.][0-9]{3}[.][0-9]{3}[.][0-9]{3}[.]`)
	// the release tag is the suffix of the site-month folder enclosing the
	// file, e.g. ".../...20211222T023112Z.RELEASE-2022/NEON...csv"
	reReleasePath = regexp.MustCompile(`20[0-9]{6}T[0-9]{6}Z\.([^./\\]+)[/\\]`)
	reRelease     = regexp.MustCompile(`RELEASE-20[0-9]{2}`)
	reNEONFile    = regexp.MustCompile(`NEON\.D[0-9]{2}\.[A-Z]{4}\.`)
)

// FileName is the structured form of one NEON file name. Fields that the
// name does not carry are empty.
type FileName struct {
	Base   string
	Fields []string

	Domain     string
	Site       string
	DPID       string
	Month      string
	Horizontal string
	Vertical   string
	// Stamp is the publication timestamp YYYYMMDDThhmmssZ; fixed-width and
	// zero-padded, so lexicographic order is chronological order
	Stamp string
}

// ParseFileName parses the base name of p. It never fails: unmatched fields
// are left empty, and callers decide what is required.
func ParseFileName(p string) FileName {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	fn := FileName{
		Base:   base,
		Fields: strings.Split(base, "."),
		Domain: reDomain.FindString(base),
		DPID:   reDPID.FindString(base),
		Month:  reMonth.FindString(base),
		Stamp:  reStamp.FindString(base),
	}
	if m := reSite.FindString(base); m != "" {
		fn.Site = strings.Trim(m, ".")
	}
	if m := rePositions.FindString(base); m != "" {
		// .HHH.VVV.###.###. segment; HOR and VER are the first two codes
		fn.Horizontal = m[5:8]
		fn.Vertical = m[9:12]
	}
	return fn
}

// TableTokens returns the candidate logical-table tokens of one file name:
// dot fields after the fixed site position that contain an underscore, with
// the _pub publication-package marker stripped. The two specially handled
// tables are excluded here and forced by the classifier.
func (f FileName) TableTokens() []string {
	var tokens []string
	for i := 2; i < len(f.Fields); i++ {
		s := f.Fields[i]
		if s == "sensor_positions" || s == "science_review_flags" {
			continue
		}
		if !strings.Contains(s, "_") {
			continue
		}
		tokens = append(tokens, strings.ReplaceAll(s, "_pub", ""))
	}
	return tokens
}

// HasTable reports whether the file name references the given logical table,
// under either its plain or _pub-suffixed form.
func (f FileName) HasTable(table string) bool {
	for _, s := range f.Fields {
		if s == table || s == table+"_pub" {
			return true
		}
	}
	return false
}

// LabName returns the second dot field, which for lab-published files is the
// originating laboratory identifier.
func (f FileName) LabName() string {
	if len(f.Fields) < 2 {
		return ""
	}
	return f.Fields[1]
}

// releaseTag extracts the release tag from a full file path, taken from the
// enclosing site-month folder name following the publication timestamp.
func releaseTag(fullpath string) string {
	m := reReleasePath.FindStringSubmatch(fullpath)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// isNEONFile reports whether the name follows the portal naming grammar, as
// opposed to per-sample "data frame" files published outside it.
func isNEONFile(name string) bool {
	return strings.HasPrefix(path.Base(strings.ReplaceAll(name, "\\", "/")), "NEON.")
}
