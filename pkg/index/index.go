// Package index holds the per-person embedding indexes and the directory
// that contains them.
package index

import (
	"context"
	"errors"
	"maps"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/philippgille/chromem-go"

	"github.com/gtonic/resumebot/pkg/provider"
)

const (
	collectionName = "documents"

	sourceKey = "source"
)

// Document is one embedded chunk of a resume.
type Document struct {
	ID string

	Content  string
	Source   string
	Metadata map[string]string

	Embedding []float32
}

// Index is the index of one entity. Its documents live in a chromem-go
// collection; Documents only carries chunks that have not been stored yet.
type Index struct {
	Entity  string `json:"entity"`
	Summary string `json:"summary"`

	Model string `json:"model,omitempty"`

	Documents []Document `json:"-"`

	Created time.Time `json:"created"`

	mu         sync.Mutex
	collection *chromem.Collection
}

type QueryOptions struct {
	Limit *int
}

type QueryResult struct {
	Document Document
	Score    float32
}

// Provider answers similarity queries against one entity.
type Provider interface {
	Query(ctx context.Context, query string, opts *QueryOptions) ([]QueryResult, error)
}

// Summary describes an entity index for routing.
func Summary(name string) string {
	return "This content contains resume of " + name + ".\n" +
		"Use this index if you need to lookup specific facts about " + name + ".\n" +
		"Do not confuse people with the same lastname, but different first names. " +
		"If you cant find the answer, respond with the best of your knowledge. " +
		"Do not use this index if you want to analyze multiple people."
}

var errMissingEmbedding = errors.New("document has no embedding")

// storedOnly keeps chromem-go from calling out to a default embedding
// provider for documents without vectors.
func storedOnly(ctx context.Context, text string) ([]float32, error) {
	return nil, errMissingEmbedding
}

func addDocuments(ctx context.Context, c *chromem.Collection, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	values := make([]chromem.Document, 0, len(docs))

	for i, d := range docs {
		id := d.ID

		if id == "" {
			id = strconv.Itoa(i)
		}

		metadata := maps.Clone(d.Metadata)

		if d.Source != "" {
			if metadata == nil {
				metadata = map[string]string{}
			}

			metadata[sourceKey] = d.Source
		}

		values = append(values, chromem.Document{
			ID:        id,
			Metadata:  metadata,
			Embedding: d.Embedding,
			Content:   d.Content,
		})
	}

	return c.AddDocuments(ctx, values, runtime.NumCPU())
}

// vectors returns the collection backing idx. Indexes that were built in
// memory get a transient collection on first use.
func (idx *Index) vectors(ctx context.Context) (*chromem.Collection, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.collection != nil {
		return idx.collection, nil
	}

	c, err := chromem.NewDB().CreateCollection(collectionName, map[string]string{"entity": idx.Entity}, storedOnly)

	if err != nil {
		return nil, err
	}

	if err := addDocuments(ctx, c, idx.Documents); err != nil {
		return nil, err
	}

	idx.collection = c
	return c, nil
}

// Len returns the number of chunks in the index.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.collection != nil {
		return idx.collection.Count()
	}

	return len(idx.Documents)
}

// Search returns the chunks most similar to embedding.
func (idx *Index) Search(ctx context.Context, embedding []float32, opts *QueryOptions) ([]QueryResult, error) {
	c, err := idx.vectors(ctx)

	if err != nil {
		return nil, err
	}

	limit := 3

	if opts != nil && opts.Limit != nil {
		limit = *opts.Limit
	}

	count := c.Count()

	if limit <= 0 || limit > count {
		limit = count
	}

	if limit == 0 {
		return nil, nil
	}

	matches, err := c.QueryEmbedding(ctx, embedding, limit, nil, nil)

	if err != nil {
		return nil, err
	}

	results := make([]QueryResult, 0, len(matches))

	for _, m := range matches {
		metadata := maps.Clone(m.Metadata)
		source := metadata[sourceKey]
		delete(metadata, sourceKey)

		if len(metadata) == 0 {
			metadata = nil
		}

		results = append(results, QueryResult{
			Document: Document{
				ID:        m.ID,
				Content:   m.Content,
				Source:    source,
				Metadata:  metadata,
				Embedding: m.Embedding,
			},
			Score: m.Similarity,
		})
	}

	return results, nil
}

var _ Provider = &Retriever{}

// Retriever embeds a query with the embedder the index was built with and
// searches one entity index.
type Retriever struct {
	index    *Index
	embedder provider.Embedder
}

func NewRetriever(index *Index, embedder provider.Embedder) (*Retriever, error) {
	if index == nil {
		return nil, errors.New("missing index")
	}

	if embedder == nil {
		return nil, errors.New("missing embedder provider")
	}

	return &Retriever{
		index:    index,
		embedder: embedder,
	}, nil
}

func (r *Retriever) Query(ctx context.Context, query string, opts *QueryOptions) ([]QueryResult, error) {
	embedding, err := r.embedder.Embed(ctx, []string{query})

	if err != nil {
		return nil, err
	}

	if len(embedding.Embeddings) == 0 {
		return nil, errors.New("no embedding returned")
	}

	return r.index.Search(ctx, embedding.Embeddings[0], opts)
}
