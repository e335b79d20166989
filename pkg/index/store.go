package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/philippgille/chromem-go"
)

const (
	fileName = "index.json"

	vectorsDir = "vectors"
)

// Write persists idx below dir/<entity>/: the entity metadata as index.json
// and the chunks as a chromem-go database in vectors/.
func Write(ctx context.Context, dir string, idx *Index) error {
	if idx == nil || idx.Entity == "" {
		return errors.New("missing entity")
	}

	path := filepath.Join(dir, idx.Entity)

	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}

	vectors := filepath.Join(path, vectorsDir)

	if err := os.RemoveAll(vectors); err != nil {
		return err
	}

	db, err := chromem.NewPersistentDB(vectors, false)

	if err != nil {
		return err
	}

	c, err := db.CreateCollection(collectionName, map[string]string{"entity": idx.Entity}, storedOnly)

	if err != nil {
		return err
	}

	if err := addDocuments(ctx, c, idx.Documents); err != nil {
		return fmt.Errorf("storing chunks for %s: %w", idx.Entity, err)
	}

	data, err := json.Marshal(idx)

	if err != nil {
		return err
	}

	tmp := filepath.Join(path, "."+fileName+".tmp")

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, filepath.Join(path, fileName))
}

func Load(dir, entity string) (*Index, error) {
	path := filepath.Join(dir, entity)

	data, err := os.ReadFile(filepath.Join(path, fileName))

	if err != nil {
		return nil, fmt.Errorf("loading index for %s: %w", entity, err)
	}

	idx := &Index{}

	if err := json.Unmarshal(data, idx); err != nil {
		return nil, fmt.Errorf("decoding index for %s: %w", entity, err)
	}

	if idx.Entity == "" {
		idx.Entity = entity
	}

	db, err := chromem.NewPersistentDB(filepath.Join(path, vectorsDir), false)

	if err != nil {
		return nil, fmt.Errorf("opening chunks for %s: %w", entity, err)
	}

	idx.collection = db.GetCollection(collectionName, storedOnly)

	if idx.collection == nil {
		if idx.collection, err = db.CreateCollection(collectionName, map[string]string{"entity": idx.Entity}, storedOnly); err != nil {
			return nil, err
		}
	}

	return idx, nil
}

// Corpus is the set of loaded entity indexes, ordered by entity name.
type Corpus struct {
	Indexes []*Index
}

func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}

	return len(c.Indexes)
}

func (c *Corpus) Names() []string {
	if c == nil {
		return nil
	}

	names := make([]string, 0, len(c.Indexes))

	for _, idx := range c.Indexes {
		names = append(names, idx.Entity)
	}

	return names
}

func (c *Corpus) Index(name string) (*Index, bool) {
	if c == nil {
		return nil, false
	}

	for _, idx := range c.Indexes {
		if idx.Entity == name {
			return idx, true
		}
	}

	return nil, false
}

func LoadCorpus(dir string, names []string) (*Corpus, error) {
	c := &Corpus{}

	for _, name := range names {
		idx, err := Load(dir, name)

		if err != nil {
			return nil, err
		}

		c.Indexes = append(c.Indexes, idx)
	}

	return c, nil
}
