// Package transfer converts plans and the rail inventory to and from
// versioned JSON documents. Imports are validated against embedded
// schemas and always receive fresh identities.
package transfer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tiagodcc/ikts/internal/domain"
)

// FormatVersion is the document version written by Export*
const FormatVersion = 1

// Document kinds
const (
	KindPlan      = "plan"
	KindInventory = "inventory"
)

// RailTypeRecord is the cross-section of a rail in a document
type RailTypeRecord struct {
	Width     int `json:"width"`
	Thickness int `json:"thickness"`
}

// PieceRecord is a plan piece in a document
type PieceRecord struct {
	ID       string         `json:"id,omitempty"`
	Length   int            `json:"length"`
	Quantity int            `json:"quantity"`
	Purpose  string         `json:"purpose,omitempty"`
	RailType RailTypeRecord `json:"railType"`
}

// PlanRecord is a plan in a document. Timestamps stay strings so that
// malformed values can be replaced instead of failing the import.
type PlanRecord struct {
	ID             string        `json:"id,omitempty"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	RequiredPieces []PieceRecord `json:"requiredPieces"`
	CreatedAt      string        `json:"createdAt,omitempty"`
	UpdatedAt      string        `json:"updatedAt,omitempty"`
}

// PlanDocument is the export format of a single plan
type PlanDocument struct {
	Version    int        `json:"version"`
	Kind       string     `json:"kind"`
	ExportedAt string     `json:"exportedAt,omitempty"`
	Plan       PlanRecord `json:"plan"`
}

// RailRecord is a live rail in a document
type RailRecord struct {
	ID             string `json:"id,omitempty"`
	Length         int    `json:"length"`
	Width          int    `json:"width"`
	Thickness      int    `json:"thickness"`
	IsRemainder    bool   `json:"isRemainder"`
	OriginalRailID string `json:"originalRailId,omitempty"`
	Notes          string `json:"notes,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
}

// InventoryDocument is the export format of the live pool
type InventoryDocument struct {
	Version    int          `json:"version"`
	Kind       string       `json:"kind"`
	ExportedAt string       `json:"exportedAt,omitempty"`
	Rails      []RailRecord `json:"rails"`
}

// ExportPlan renders a plan as an indented plan document
func ExportPlan(plan domain.Plan) ([]byte, error) {
	doc := PlanDocument{
		Version:    FormatVersion,
		Kind:       KindPlan,
		ExportedAt: formatTime(now()),
		Plan: PlanRecord{
			ID:             plan.ID,
			Name:           plan.Name,
			Description:    plan.Description,
			RequiredPieces: make([]PieceRecord, 0, len(plan.RequiredPieces)),
			CreatedAt:      formatTime(plan.CreatedAt),
			UpdatedAt:      formatTime(plan.UpdatedAt),
		},
	}
	for _, p := range plan.RequiredPieces {
		doc.Plan.RequiredPieces = append(doc.Plan.RequiredPieces, PieceRecord{
			ID:       p.ID,
			Length:   p.Length,
			Quantity: p.Quantity,
			Purpose:  p.Purpose,
			RailType: RailTypeRecord{Width: p.RailType.Width, Thickness: p.RailType.Thickness},
		})
	}
	return marshal(doc)
}

// ExportInventory renders the live pool as an indented inventory document
func ExportInventory(rails []domain.Rail) ([]byte, error) {
	doc := InventoryDocument{
		Version:    FormatVersion,
		Kind:       KindInventory,
		ExportedAt: formatTime(now()),
		Rails:      make([]RailRecord, 0, len(rails)),
	}
	for _, r := range rails {
		doc.Rails = append(doc.Rails, RailRecord{
			ID:             r.ID,
			Length:         r.Length,
			Width:          r.Width,
			Thickness:      r.Thickness,
			IsRemainder:    r.IsRemainder,
			OriginalRailID: r.OriginalRailID,
			Notes:          r.Notes,
			CreatedAt:      formatTime(r.CreatedAt),
		})
	}
	return marshal(doc)
}

// ImportPlan validates a plan document and returns a plan with fresh
// plan and piece identities
func ImportPlan(data []byte) (*domain.Plan, error) {
	if err := validateDocument(KindPlan, data); err != nil {
		return nil, err
	}

	var doc PlanDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	ts := now()
	plan := &domain.Plan{
		ID:             uuid.New().String(),
		Name:           doc.Plan.Name,
		Description:    doc.Plan.Description,
		RequiredPieces: make([]domain.CutPiece, 0, len(doc.Plan.RequiredPieces)),
		CreatedAt:      parseTime(doc.Plan.CreatedAt, ts),
		UpdatedAt:      parseTime(doc.Plan.UpdatedAt, ts),
	}
	for _, p := range doc.Plan.RequiredPieces {
		piece, err := domain.NewCutPiece(p.Length, p.Quantity, p.Purpose,
			domain.RailType{Width: p.RailType.Width, Thickness: p.RailType.Thickness})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		plan.RequiredPieces = append(plan.RequiredPieces, piece)
	}
	return plan, nil
}

// ImportInventory validates an inventory document and returns its rails
// with fresh identities. References to rails inside the document are
// remapped to the new identities; references to anything else are dropped.
// Two rails sharing an identity make the document invalid.
func ImportInventory(data []byte) ([]domain.Rail, error) {
	if err := validateDocument(KindInventory, data); err != nil {
		return nil, err
	}

	var doc InventoryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	ids := make(map[string]string, len(doc.Rails))
	for _, r := range doc.Rails {
		if r.ID == "" {
			continue
		}
		if _, dup := ids[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate rail id %q", ErrInvalidDocument, r.ID)
		}
		ids[r.ID] = uuid.New().String()
	}

	ts := now()
	rails := make([]domain.Rail, 0, len(doc.Rails))
	for _, r := range doc.Rails {
		id, ok := ids[r.ID]
		if !ok {
			id = uuid.New().String()
		}
		rail := domain.Rail{
			ID:             id,
			Length:         r.Length,
			Width:          r.Width,
			Thickness:      r.Thickness,
			IsRemainder:    r.IsRemainder,
			OriginalRailID: ids[r.OriginalRailID],
			Notes:          r.Notes,
			CreatedAt:      parseTime(r.CreatedAt, ts),
		}
		if err := rail.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		rails = append(rails, rail)
	}
	return rails, nil
}

func marshal(doc any) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return append(data, '\n'), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string, fallback time.Time) time.Time {
	if value == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return fallback
	}
	return t.UTC()
}

var now = func() time.Time {
	return time.Now().UTC()
}
