/*
Package corpus reads gradable examples from a quest/category/file tree.

Layout:

	<root>/<quest>/<category>/<file>.sql

Each file is one Example. Leading comment lines may carry intent metadata
(PURPOSE, DIFFICULTY, CONCEPTS, EXPECTED RESULTS, LEARNING OUTCOMES) which is
parsed into Intent. Missing metadata is an empty string, never an error.
*/
package corpus

import (
	"path/filepath"
	"strings"
)

// Intent holds the author-declared metadata found in an example header.
type Intent struct {
	Purpose          string `json:"purpose"`
	Difficulty       string `json:"difficulty"`
	Concepts         string `json:"concepts"`
	ExpectedResults  string `json:"expected_results"`
	LearningOutcomes string `json:"learning_outcomes"`
}

// IsEmpty reports whether no metadata field was declared.
func (i Intent) IsEmpty() bool {
	return i == Intent{}
}

// Ref identifies an example on disk without reading its contents.
type Ref struct {
	Quest    string `json:"quest"`
	Category string `json:"category"`
	File     string `json:"file"`

	// Path is the absolute or root-relative path of the example file.
	Path string `json:"-"`
}

// Key returns the stable identity "quest/category/file".
func (r Ref) Key() string {
	return r.Quest + "/" + r.Category + "/" + r.File
}

// Stem returns the file name without its extension.
func (r Ref) Stem() string {
	return strings.TrimSuffix(r.File, filepath.Ext(r.File))
}

// Example is one gradable script. It is immutable once read.
type Example struct {
	Ref
	Source string `json:"-"`
	Intent Intent `json:"intent"`
}

// Filter narrows a walk to one quest, category or file. Empty fields match all.
type Filter struct {
	Quest    string
	Category string
	File     string
}

// Matches reports whether ref passes the filter.
func (f Filter) Matches(ref Ref) bool {
	if f.Quest != "" && f.Quest != ref.Quest {
		return false
	}
	if f.Category != "" && f.Category != ref.Category {
		return false
	}
	if f.File != "" && f.File != ref.File && f.File != ref.Stem() {
		return false
	}
	return true
}
