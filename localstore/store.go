// Package localstore keeps knowledge base documents outside of Bedrock,
// either in a chromem-go gob file or in Postgres with pgvector.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"ragkb"

	be "github.com/megaproaktiv/bedrockembedding/titan"
	"github.com/philippgille/chromem-go"
)

const CollectionName = "knowledge-base"

// Embed turns text into a Titan embedding. Tests replace it.
var Embed chromem.EmbeddingFunc = TitanEmbedding

func TitanEmbedding(ctx context.Context, text string) ([]float32, error) {
	return be.FetchEmbedding(text)
}

// Document is one chunk of a source file, ready to be stored.
type Document struct {
	ID      string
	Content string
	Context string
	Title   string
	Link    string
}

// Passage is a stored chunk returned by a similarity search.
type Passage struct {
	ID         string
	Content    string
	Title      string
	Link       string
	Similarity float32
}

// Chromem is a chromem-go backed store.
type Chromem struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// Init creates an empty local database.
func Init() (*Chromem, error) {
	log := ragkb.Logger
	db := chromem.NewDB()

	collection, err := db.CreateCollection(CollectionName, nil, embed)
	if err != nil {
		log.Error("Error creating collection", "error", err)
		return nil, err
	}
	return &Chromem{db: db, collection: collection}, nil
}

// Load reads a database written by Store.
func Load(path string) (*Chromem, error) {
	log := ragkb.Logger
	db := chromem.NewDB()

	err := db.Import(path, "")
	if err != nil {
		log.Error("Error loading collection", "error", err, "path", path)
		return nil, err
	}
	collection := db.GetCollection(CollectionName, embed)
	if collection == nil {
		return nil, fmt.Errorf("collection %q not found in %s", CollectionName, path)
	}
	return &Chromem{db: db, collection: collection}, nil
}

// Store writes the database to path.
func (c *Chromem) Store(path string) error {
	log := ragkb.Logger
	log.Info("Storing Database", "path", path)
	return c.db.Export(path, false, "")
}

func (c *Chromem) Count() int {
	return c.collection.Count()
}

// Add embeds and stores a document. IDs must be unique,
// a document with an existing ID is overwritten.
func (c *Chromem) Add(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return errors.New("document without ID")
	}
	embedding, err := Embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %s: %w", doc.ID, err)
	}
	return c.collection.AddDocuments(ctx, []chromem.Document{
		{
			ID:        doc.ID,
			Content:   doc.Content,
			Embedding: embedding,
			Metadata: map[string]string{
				"link":  doc.Link,
				"title": doc.Title,
			},
		},
	}, runtime.NumCPU())
}

// Retrieve returns at most k passages, most similar first.
func (c *Chromem) Retrieve(ctx context.Context, question string, k int) ([]Passage, error) {
	log := ragkb.Logger
	n := min(k, c.collection.Count())
	if n <= 0 {
		return nil, nil
	}
	log.Debug("Query collection", "results", n)
	res, err := c.collection.Query(ctx, question, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", CollectionName, err)
	}
	passages := make([]Passage, 0, len(res))
	for _, r := range res {
		passages = append(passages, Passage{
			ID:         r.ID,
			Content:    r.Content,
			Title:      r.Metadata["title"],
			Link:       r.Metadata["link"],
			Similarity: r.Similarity,
		})
	}
	return passages, nil
}

// embed defers to Embed at call time so replacing it also affects open collections.
func embed(ctx context.Context, text string) ([]float32, error) {
	return Embed(ctx, text)
}
