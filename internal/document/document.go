// Package document acquires source documents from PDFs and web pages,
// canonicalizes their text, and tags them with origin metadata. Batch
// loaders consult the cache store before acquiring and write fresh
// entries back, one cache load and one save per batch.
package document

// Metadata keys attached to every acquired document.
const (
	MetaSource = "source"
	MetaType   = "type"
	MetaSchool = "school"
)

// Document type values for the MetaType key.
const (
	TypePDF     = "pdf"
	TypeWebsite = "website"
)

// Document is an immutable unit of acquired source content. Metadata
// carries the origin (MetaSource), the kind (MetaType) and, when the
// source belongs to one school, the lowercased school name (MetaSchool).
type Document struct {
	Text     string
	Metadata map[string]string
}

// Link pairs a URL with the school it belongs to. School may be empty
// for unscoped links.
type Link struct {
	URL    string
	School string
}
