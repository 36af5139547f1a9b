package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExample(t *testing.T, root, quest, category, file, content string) string {
	t.Helper()
	dir := filepath.Join(root, quest, category)
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseIntent(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   Intent
	}{
		{
			name: "all keys",
			source: `-- PURPOSE: Show recursive CTEs
-- DIFFICULTY: Advanced
-- CONCEPTS: recursion, hierarchies
-- EXPECTED RESULTS: An org chart
-- LEARNING OUTCOMES: Walk trees in SQL
SELECT 1;`,
			want: Intent{
				Purpose:          "Show recursive CTEs",
				Difficulty:       "Advanced",
				Concepts:         "recursion, hierarchies",
				ExpectedResults:  "An org chart",
				LearningOutcomes: "Walk trees in SQL",
			},
		},
		{
			name: "aliases and continuation",
			source: `-- purpose: Aggregate sales
--   per region and month
-- Expected_Results: one row per region
-- OUTCOMES: GROUP BY`,
			want: Intent{
				Purpose:          "Aggregate sales per region and month",
				ExpectedResults:  "one row per region",
				LearningOutcomes: "GROUP BY",
			},
		},
		{
			name:   "no header",
			source: "SELECT 1;\n-- PURPOSE: too late",
			want:   Intent{},
		},
		{
			name:   "unknown keys ignored",
			source: "-- AUTHOR: someone\n-- PURPOSE: x",
			want:   Intent{Purpose: "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseIntent(tt.source, nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntentIsEmpty(t *testing.T) {
	assert.True(t, Intent{}.IsEmpty())
	assert.False(t, Intent{Concepts: "joins"}.IsEmpty())
}

func TestLoaderList(t *testing.T) {
	root := t.TempDir()
	writeExample(t, root, "quest-b", "basics", "02_select.sql", "SELECT 1;")
	writeExample(t, root, "quest-a", "joins", "01_inner.sql", "SELECT 1;")
	writeExample(t, root, "quest-a", "basics", "01_create.sql", "CREATE TABLE t (id int);")
	writeExample(t, root, "quest-a", "basics", "notes.md", "not an example")
	writeExample(t, root, ".hidden", "basics", "01.sql", "SELECT 1;")

	loader := NewLoader(root, Options{})

	refs, err := loader.List(Filter{})
	require.NoError(t, err)

	var keys []string
	for _, ref := range refs {
		keys = append(keys, ref.Key())
	}
	assert.Equal(t, []string{
		"quest-a/basics/01_create.sql",
		"quest-a/joins/01_inner.sql",
		"quest-b/basics/02_select.sql",
	}, keys)

	refs, err = loader.List(Filter{Quest: "quest-a", Category: "joins"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "01_inner", refs[0].Stem())

	refs, err = loader.List(Filter{File: "02_select"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "quest-b", refs[0].Quest)
}

func TestLoaderListRejectsSharedStem(t *testing.T) {
	root := t.TempDir()
	writeExample(t, root, "quest-a", "basics", "a.sql", "SELECT 1;")
	writeExample(t, root, "quest-a", "basics", "a.psql", "SELECT 2;")
	writeExample(t, root, "quest-a", "other", "a.sql", "SELECT 3;")

	loader := NewLoader(root, Options{Extensions: []string{".sql", ".psql"}})

	_, err := loader.List(Filter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `share the stem "a"`)

	// Same stem in different categories maps to different records.
	refs, err := NewLoader(root, Options{}).List(Filter{})
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}

func TestLoaderMissingRoot(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "missing"), Options{})
	_, err := loader.List(Filter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoaderLoad(t *testing.T) {
	root := t.TempDir()
	writeExample(t, root, "q", "c", "f.sql", "-- PURPOSE: demo\nSELECT 1;\n")

	examples, err := NewLoader(root, Options{}).Load(Filter{})
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, "demo", examples[0].Intent.Purpose)
	assert.Contains(t, examples[0].Source, "SELECT 1;")
}

func TestRefFromPath(t *testing.T) {
	root := t.TempDir()
	loader := NewLoader(root, Options{Extensions: []string{"sql", ".psql"}})

	ref, ok := loader.RefFromPath(filepath.Join(root, "q", "c", "f.psql"))
	require.True(t, ok)
	assert.Equal(t, "q/c/f.psql", ref.Key())

	_, ok = loader.RefFromPath(filepath.Join(root, "q", "f.sql"))
	assert.False(t, ok)

	_, ok = loader.RefFromPath(filepath.Join(root, "q", "c", "f.txt"))
	assert.False(t, ok)
}
