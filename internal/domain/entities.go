package domain

import "time"

// Metadata keys written with every indexed entry.
const (
	MetaPreview    = "preview"
	MetaSource     = "source"
	MetaMediaType  = "media_type"
	MetaSequence   = "seq"
	MetaIngestedAt = "ingested_at"
)

// Document is an uploaded buffer with its declared media type. It is not persisted.
type Document struct {
	Name      string
	MediaType string
	Data      []byte
}

type Chunk struct {
	Content       string
	SequenceIndex int
	Preview       string
}

// IndexedEntry is the unit persisted in a collection.
type IndexedEntry struct {
	ID        string
	Embedding []float32
	Text      string
	Metadata  map[string]string
}

// Preview returns the stored preview, falling back to the text.
func (e IndexedEntry) Preview() string {
	if p, ok := e.Metadata[MetaPreview]; ok {
		return p
	}
	return e.Text
}

// StoredDocument is what GetAll returns: document text and metadata, in store order.
type StoredDocument struct {
	ID       string
	Text     string
	Metadata map[string]string
}

func (d StoredDocument) Preview() string {
	if p, ok := d.Metadata[MetaPreview]; ok {
		return p
	}
	return d.Text
}

// QueryHit is a nearest-neighbour match. Distance is lower for closer matches.
type QueryHit struct {
	ID       string
	Text     string
	Distance float64
	Metadata map[string]string
}

// SearchResult is the display shape of a QueryHit.
type SearchResult struct {
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
	Preview string  `json:"preview"`
}

type IngestResult struct {
	Source   string
	Count    int
	IDs      []string
	Duration time.Duration
}
