package index

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	log "github.com/sirupsen/logrus"
)

const nameSuffix = "resume"

// Directory is the local index location plus the source directory that
// feeds it when no index exists yet. It is not safe for concurrent use;
// callers serialize access.
type Directory struct {
	Path   string
	Source string

	Extensions []string
}

// Entity is one person known to the index.
type Entity struct {
	Name string

	// Sources lists the input files when the entity comes from the source
	// directory. It is empty for entities read from an existing index.
	Sources []string
}

type Manifest struct {
	Entities []Entity

	// Indexed reports whether the entities were read from an existing index
	// directory rather than discovered in the source directory.
	Indexed bool
}

func (m *Manifest) Empty() bool {
	return m == nil || len(m.Entities) == 0
}

func (m *Manifest) Names() []string {
	if m == nil {
		return nil
	}

	names := make([]string, 0, len(m.Entities))

	for _, e := range m.Entities {
		names = append(names, e.Name)
	}

	return names
}

// Ensure reports which entities are available. A non-empty index directory
// yields its child names without looking at their content. An empty one is
// removed. Without an index the source directory is created if needed and
// scanned for input files. No entities at all is an empty manifest, not an
// error.
func (d *Directory) Ensure() (*Manifest, error) {
	entries, err := os.ReadDir(d.Path)

	switch {
	case err == nil:
		var entities []Entity

		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".") {
				continue
			}

			entities = append(entities, Entity{Name: e.Name()})
		}

		if len(entities) > 0 {
			return &Manifest{
				Entities: entities,
				Indexed:  true,
			}, nil
		}

		log.WithField("path", d.Path).Warn("index directory is empty, removing it")

		if err := os.RemoveAll(d.Path); err != nil {
			return nil, err
		}

	case errors.Is(err, fs.ErrNotExist):

	default:
		return nil, err
	}

	return d.scan()
}

func (d *Directory) scan() (*Manifest, error) {
	if d.Source == "" {
		return &Manifest{}, nil
	}

	if err := os.MkdirAll(d.Source, 0o755); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(d.Source)

	if err != nil {
		return nil, err
	}

	extensions := d.Extensions

	if len(extensions) == 0 {
		extensions = []string{".pdf"}
	}

	sources := make(map[string][]string)

	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}

		if !hasExtension(e.Name(), extensions) {
			continue
		}

		name := EntityName(e.Name())

		if name == "" {
			log.WithField("file", e.Name()).Warn("skipping source file without a usable name")
			continue
		}

		sources[name] = append(sources[name], filepath.Join(d.Source, e.Name()))
	}

	if len(sources) == 0 {
		log.WithField("path", d.Source).Warn("no source files found")
		return &Manifest{}, nil
	}

	m := &Manifest{}

	for name, files := range sources {
		m.Entities = append(m.Entities, Entity{
			Name:    name,
			Sources: files,
		})
	}

	slices.SortFunc(m.Entities, func(a, b Entity) int {
		return strings.Compare(a.Name, b.Name)
	})

	return m, nil
}

func hasExtension(name string, extensions []string) bool {
	ext := filepath.Ext(name)

	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}

	return false
}

// EntityName derives the lookup key for a source file: the extension is
// dropped, a trailing "resume" token is dropped regardless of its case,
// underscores become spaces and the result is trimmed. The casing of the
// name itself is kept, so "jane_doe_resume.pdf" becomes "jane doe".
func EntityName(filename string) string {
	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	if len(name) >= len(nameSuffix) && strings.EqualFold(name[len(name)-len(nameSuffix):], nameSuffix) {
		name = name[:len(name)-len(nameSuffix)]
	}

	name = strings.ReplaceAll(name, "_", " ")

	return strings.TrimSpace(name)
}
