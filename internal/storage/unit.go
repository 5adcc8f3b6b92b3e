package storage

import (
	"fmt"

	"github.com/google/uuid"
)

// DefaultCollection is the Qdrant collection holding all paragraph units.
const DefaultCollection = "documents"

// DefaultDimension is the embedding size for text-embedding-3-small.
const DefaultDimension = 1536

// pointNamespace seeds the deterministic point ids derived from unit ids.
var pointNamespace = uuid.MustParse("6f0d3c55-5b7e-4c55-9a51-2f1d0c8e7a42")

// Unit is one indexed paragraph of a document page.
type Unit struct {
	ID         string // "{document_id}_p{page}_para{paragraph}"
	DocumentID string
	Filename   string
	Page       int // 1-based
	Paragraph  int // 1-based within the page
	Text       string
	Embedding  []float32
}

// Metadata is the per-unit metadata carried by every stored unit.
type Metadata struct {
	DocumentID string
	Filename   string
	Page       int
	Paragraph  int
}

// ScoredUnit is a search hit. Embedding is not populated.
type ScoredUnit struct {
	Unit  *Unit
	Score float64
}

// UnitID builds the composite identifier of a paragraph unit.
func UnitID(documentID string, page, paragraph int) string {
	return fmt.Sprintf("%s_p%d_para%d", documentID, page, paragraph)
}

// PointID maps a unit id onto a stable UUID for stores that only accept UUID keys.
func PointID(unitID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(unitID)).String()
}

// Validate reports whether u carries the four required metadata fields and
// fills in ID when it is empty.
func (u *Unit) Validate() error {
	switch {
	case u.DocumentID == "":
		return fmt.Errorf("%w: document_id", ErrIncompleteUnit)
	case u.Filename == "":
		return fmt.Errorf("%w: filename", ErrIncompleteUnit)
	case u.Page < 1:
		return fmt.Errorf("%w: page", ErrIncompleteUnit)
	case u.Paragraph < 1:
		return fmt.Errorf("%w: paragraph", ErrIncompleteUnit)
	}
	if u.ID == "" {
		u.ID = UnitID(u.DocumentID, u.Page, u.Paragraph)
	}
	return nil
}

// Metadata returns the unit's metadata fields.
func (u *Unit) Metadata() Metadata {
	return Metadata{
		DocumentID: u.DocumentID,
		Filename:   u.Filename,
		Page:       u.Page,
		Paragraph:  u.Paragraph,
	}
}

// Citation formats the human-readable location of a paragraph.
func Citation(page, paragraph int) string {
	return fmt.Sprintf("Page %d, Para %d", page, paragraph)
}

// Citation returns the location label of the unit described by m.
func (m Metadata) Citation() string {
	return Citation(m.Page, m.Paragraph)
}
