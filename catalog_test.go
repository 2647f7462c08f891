package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedCatalogLoads(t *testing.T) {
	cat, err := loadCatalog("")
	require.NoError(t, err)
	require.Greater(t, cat.size(), 0)

	for _, r := range cat.rounds {
		require.NotEmpty(t, r.Image)
		require.NotEmpty(t, r.Answers)
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := `- image: one.jpg
  answers: ["first game"]
  lat: 1.5
  lng: 2.5
  difficulty: easy
- image: two.jpg
  answers: ["second game", "game two"]
  lat: -3
  lng: 4
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cat, err := loadCatalog(path)
	require.NoError(t, err)
	require.Equal(t, 2, cat.size())
	require.Equal(t, "one.jpg", cat.rounds[0].Image)
	require.Equal(t, []string{"second game", "game two"}, cat.rounds[1].Answers)
}

func TestLoadCatalogRejectsBadEntries(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name string
		data string
	}{
		{"missing image", `- answers: ["x"]`},
		{"no answers", `- image: a.jpg`},
		{"empty", ``},
		{"not yaml", `{{{`},
	}

	for _, c := range cases {
		path := filepath.Join(dir, c.name+".yaml")
		require.NoError(t, os.WriteFile(path, []byte(c.data), 0o644))

		_, err := loadCatalog(path)
		require.Error(t, err, c.name)
	}

	_, err := loadCatalog(filepath.Join(dir, "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestSnapshotForIsAPermutation(t *testing.T) {
	cat := &Catalog{}
	for i := 0; i < 20; i++ {
		cat.rounds = append(cat.rounds, Round{
			Image:   fmt.Sprintf("img-%02d.jpg", i),
			Answers: []string{"x"},
		})
	}

	for trial := 0; trial < 10; trial++ {
		snap := cat.snapshotFor("")
		require.Len(t, snap, 20)

		images := make([]string, len(snap))
		for i, r := range snap {
			images[i] = r.Image
		}
		sort.Strings(images)
		for i, img := range images {
			require.Equal(t, fmt.Sprintf("img-%02d.jpg", i), img, "shuffle must not drop or duplicate rounds")
		}
	}
}

func TestSnapshotForFiltersDifficulty(t *testing.T) {
	cat := &Catalog{rounds: []Round{
		{Image: "a.jpg", Answers: []string{"a"}, Difficulty: "easy"},
		{Image: "b.jpg", Answers: []string{"b"}, Difficulty: "hard"},
		{Image: "c.jpg", Answers: []string{"c"}},
	}}

	easy := cat.snapshotFor("easy")
	require.Len(t, easy, 2, "untagged rounds match every difficulty")
	for _, r := range easy {
		require.NotEqual(t, "hard", r.Difficulty)
	}

	all := cat.snapshotFor("")
	require.Len(t, all, 3)

	// The snapshot is a copy; mutating it must not touch the catalog.
	all[0].Answers = nil
	for _, r := range cat.rounds {
		require.NotEmpty(t, r.Answers)
	}
}
