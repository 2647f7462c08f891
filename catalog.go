package main

import (
	"crypto/rand"
	_ "embed"
	"fmt"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Round is one panorama a room can serve: the image shown to clients, the
// names accepted as a correct guess, and the true map coordinate. Answers
// and coordinates never leave the server.
type Round struct {
	Image      string   `yaml:"image"`
	Answers    []string `yaml:"answers"`
	Lat        float64  `yaml:"lat"`
	Lng        float64  `yaml:"lng"`
	Difficulty string   `yaml:"difficulty"`
}

// Catalog is the read-only round pool loaded once at startup. Rooms copy
// out of it at game start and never write back.
type Catalog struct {
	rounds []Round
}

func loadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading catalog: %w", err)
		}
	}

	var rounds []Round
	if err := yaml.Unmarshal(data, &rounds); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	if len(rounds) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	for i, r := range rounds {
		if r.Image == "" {
			return nil, fmt.Errorf("catalog entry %d: missing image", i)
		}
		if len(r.Answers) == 0 {
			return nil, fmt.Errorf("catalog entry %d: no accepted answers", i)
		}
	}

	return &Catalog{rounds: rounds}, nil
}

func (c *Catalog) size() int {
	return len(c.rounds)
}

// snapshotFor copies and shuffles the rounds matching the requested
// difficulty, so concurrent rooms own independent progressions. An empty
// difficulty selects the whole catalog.
func (c *Catalog) snapshotFor(difficulty string) []Round {
	out := make([]Round, 0, len(c.rounds))
	for _, r := range c.rounds {
		if difficulty != "" && r.Difficulty != "" && r.Difficulty != difficulty {
			continue
		}
		out = append(out, r)
	}

	// Fisher-Yates shuffle; rand.Int keeps the draw uniform.
	for i := len(out) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			continue
		}
		j := int(n.Int64())
		out[i], out[j] = out[j], out[i]
	}

	return out
}
