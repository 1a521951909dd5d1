package vectorstore

import "github.com/zakerytclarke/teapot/internal/domain"

// Storage is a read-only, index-aligned view of documents and their vectors:
// Vector(i) is the embedding of Document(i).
type Storage interface {
	Len() int
	Document(i int) domain.Document
	Vector(i int) []float64
	// Embedder returns the embedder that produced the vectors. Queries must be
	// embedded with it.
	Embedder() domain.Embedder
}
