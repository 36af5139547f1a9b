package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtensions lists the file extensions treated as examples.
var DefaultExtensions = []string{".sql"}

// DefaultCommentPrefixes lists the line-comment markers scanned for intent metadata.
var DefaultCommentPrefixes = []string{"--"}

// Options configures a Loader.
type Options struct {
	Extensions      []string
	CommentPrefixes []string
}

// Loader walks an example tree rooted at a directory.
type Loader struct {
	root            string
	extensions      map[string]bool
	commentPrefixes []string
}

// NewLoader creates a loader for the tree at root.
func NewLoader(root string, opts Options) *Loader {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	prefixes := opts.CommentPrefixes
	if len(prefixes) == 0 {
		prefixes = DefaultCommentPrefixes
	}

	extSet := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extSet[ext] = true
	}

	return &Loader{
		root:            root,
		extensions:      extSet,
		commentPrefixes: prefixes,
	}
}

// Root returns the directory the loader walks.
func (l *Loader) Root() string {
	return l.root
}

// List returns every example reference under the root that passes filter,
// sorted by quest, category and file. Sources are not read.
func (l *Loader) List(filter Filter) ([]Ref, error) {
	quests, err := os.ReadDir(l.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("example root not found: %s", l.root)
		}
		return nil, fmt.Errorf("failed to read example root: %w", err)
	}

	var refs []Ref
	for _, quest := range quests {
		if !quest.IsDir() || isHidden(quest.Name()) {
			continue
		}
		if filter.Quest != "" && filter.Quest != quest.Name() {
			continue
		}

		questDir := filepath.Join(l.root, quest.Name())
		categories, err := os.ReadDir(questDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read quest %s: %w", quest.Name(), err)
		}

		for _, category := range categories {
			if !category.IsDir() || isHidden(category.Name()) {
				continue
			}
			if filter.Category != "" && filter.Category != category.Name() {
				continue
			}

			categoryDir := filepath.Join(questDir, category.Name())
			files, err := os.ReadDir(categoryDir)
			if err != nil {
				return nil, fmt.Errorf("failed to read category %s/%s: %w", quest.Name(), category.Name(), err)
			}

			stems := make(map[string]string)
			for _, file := range files {
				if file.IsDir() || isHidden(file.Name()) || !l.isExample(file.Name()) {
					continue
				}
				ref := Ref{
					Quest:    quest.Name(),
					Category: category.Name(),
					File:     file.Name(),
					Path:     filepath.Join(categoryDir, file.Name()),
				}
				// Records are keyed by stem, so a.sql and a.psql would share one.
				if other, dup := stems[ref.Stem()]; dup {
					return nil, fmt.Errorf("ambiguous examples in %s/%s: %s and %s share the stem %q",
						quest.Name(), category.Name(), other, file.Name(), ref.Stem())
				}
				stems[ref.Stem()] = file.Name()

				if filter.Matches(ref) {
					refs = append(refs, ref)
				}
			}
		}
	}

	return refs, nil
}

// Read loads the source and intent metadata of one example.
func (l *Loader) Read(ref Ref) (Example, error) {
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		return Example{}, fmt.Errorf("failed to read example %s: %w", ref.Key(), err)
	}

	source := string(data)
	return Example{
		Ref:    ref,
		Source: source,
		Intent: ParseIntent(source, l.commentPrefixes),
	}, nil
}

// Load lists and reads every example that passes filter.
func (l *Loader) Load(filter Filter) ([]Example, error) {
	refs, err := l.List(filter)
	if err != nil {
		return nil, err
	}

	examples := make([]Example, 0, len(refs))
	for _, ref := range refs {
		ex, err := l.Read(ref)
		if err != nil {
			return nil, err
		}
		examples = append(examples, ex)
	}
	return examples, nil
}

// RefFromPath maps a file path inside the tree back to its reference.
// It returns false for paths that are not examples at quest/category depth.
func (l *Loader) RefFromPath(path string) (Ref, bool) {
	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		return Ref{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return Ref{}, false
	}
	for _, part := range parts {
		if part == ".." || isHidden(part) {
			return Ref{}, false
		}
	}
	if !l.isExample(parts[2]) {
		return Ref{}, false
	}
	return Ref{
		Quest:    parts[0],
		Category: parts[1],
		File:     parts[2],
		Path:     path,
	}, true
}

func (l *Loader) isExample(name string) bool {
	return l.extensions[strings.ToLower(filepath.Ext(name))]
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}
