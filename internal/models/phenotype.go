package models

import (
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// GenotypeFileKind is the dot-separated segment that marks a 23andMe upload on openSNP,
// e.g. "1234.23andme.5678"
const GenotypeFileKind = "23andme"

// ValidationSignature must appear in the first line of a valid 23andMe export
const ValidationSignature = "23andMe"

// PhenotypeIndex maps a reported variant to the users that reported it
type PhenotypeIndex map[string][]string

// Add records that user reported variant
func (p PhenotypeIndex) Add(variant, userID string) {
	p[variant] = append(p[variant], userID)
}

// UserCount returns the total number of (user, variant) pairs
func (p PhenotypeIndex) UserCount() int {
	n := 0
	for _, users := range p {
		n += len(users)
	}
	return n
}

// Pairs flattens the index into (user, variant) keys, ordered by variant then user
func (p PhenotypeIndex) Pairs() []UserVariant {
	pairs := make([]UserVariant, 0, p.UserCount())
	for _, variant := range sortedKeys(p) {
		for _, u := range p[variant] {
			pairs = append(pairs, UserVariant{UserID: u, Variant: variant})
		}
	}
	return pairs
}

// UserVariant identifies one user's report for a phenotype
type UserVariant struct {
	UserID  string
	Variant string
}

// FileRecord is the outcome of resolving a user's raw genotype file.
// An empty URL means the resolution failed.
type FileRecord struct {
	UserID  string
	Variant string
	URL     string
}

// Resolved reports whether a file URL was found
func (r FileRecord) Resolved() bool {
	return r.URL != ""
}

// ScrapeManifest maps a variant to the resolved file URLs of its users
type ScrapeManifest map[string][]string

// BuildManifest splits resolution results into a manifest and the ids of users whose
// file could not be resolved. Unresolved records never enter the manifest.
func BuildManifest(records []FileRecord) (ScrapeManifest, []string) {
	manifest := ScrapeManifest{}
	failed := []string{}
	for _, r := range records {
		if !r.Resolved() {
			failed = append(failed, r.UserID)
			continue
		}
		manifest[r.Variant] = append(manifest[r.Variant], r.URL)
	}
	return manifest, failed
}

// FileCount returns the total number of URLs in the manifest
func (m ScrapeManifest) FileCount() int {
	n := 0
	for _, urls := range m {
		n += len(urls)
	}
	return n
}

// Variants returns the manifest's variants in sorted order
func (m ScrapeManifest) Variants() []string {
	return sortedKeys(m)
}

// DownloadTask is a single file to fetch into the phenotype tree
type DownloadTask struct {
	URL         string
	Destination string
}

// VariantDir returns the directory that holds files for variant
func VariantDir(phenotypeDir, variant string) string {
	return filepath.Join(phenotypeDir, SanitizePathElement(variant))
}

// SanitizePathElement maps free-text labels such as "N/A" onto a single safe path element
func SanitizePathElement(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(name)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}

// DownloadDestination returns the local path for a file URL: the last path segment
// with any query string dropped, placed under the variant directory
func DownloadDestination(phenotypeDir, variant, fileURL string) string {
	return filepath.Join(VariantDir(phenotypeDir, variant), FileNameFromURL(fileURL))
}

// FileNameFromURL extracts the base file name from a URL, ignoring query and fragment
func FileNameFromURL(fileURL string) string {
	if u, err := url.Parse(fileURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(fileURL)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
