package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Plan errors
var (
	ErrPlanNameRequired     = errors.New("plan name is required")
	ErrPlanNotFound         = errors.New("plan not found")
	ErrPieceNotFound        = errors.New("piece not found")
	ErrInvalidPieceLength   = errors.New("invalid piece: length must be positive")
	ErrInvalidPieceQuantity = fmt.Errorf("invalid piece: quantity must be between 1 and %d", MaxPieceQuantity)
)

// MaxPieceQuantity bounds the quantity of a single plan line
const MaxPieceQuantity = 10000

// CutPiece is a line of a plan's bill of pieces. The allocation engine
// expands it into Quantity unit pieces.
type CutPiece struct {
	ID       string   `bson:"id" json:"id"`
	Length   int      `bson:"length" json:"length"`
	Quantity int      `bson:"quantity" json:"quantity"`
	Purpose  string   `bson:"purpose" json:"purpose"`
	RailType RailType `bson:"railType" json:"railType"`
}

// NewCutPiece creates a validated piece with a fresh identity
func NewCutPiece(length, quantity int, purpose string, railType RailType) (CutPiece, error) {
	piece := CutPiece{
		ID:       uuid.New().String(),
		Length:   length,
		Quantity: quantity,
		Purpose:  strings.TrimSpace(purpose),
		RailType: railType,
	}
	return piece, piece.Validate()
}

// Validate checks the piece invariants
func (p CutPiece) Validate() error {
	if p.Length <= 0 {
		return ErrInvalidPieceLength
	}
	if p.Quantity < 1 || p.Quantity > MaxPieceQuantity {
		return ErrInvalidPieceQuantity
	}
	if !p.RailType.IsValid() {
		return ErrInvalidRailType
	}
	return nil
}

// Plan is a named bill of required cut pieces
type Plan struct {
	ID             string     `bson:"_id" json:"id"`
	Name           string     `bson:"name" json:"name"`
	Description    string     `bson:"description,omitempty" json:"description,omitempty"`
	RequiredPieces []CutPiece `bson:"requiredPieces" json:"requiredPieces"`
	CreatedAt      time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// NewPlan creates an empty plan
func NewPlan(name, description string) (*Plan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrPlanNameRequired
	}

	ts := now()
	return &Plan{
		ID:             uuid.New().String(),
		Name:           name,
		Description:    strings.TrimSpace(description),
		RequiredPieces: make([]CutPiece, 0),
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}, nil
}

// Rename updates the plan's name and description
func (p *Plan) Rename(name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrPlanNameRequired
	}
	p.Name = name
	p.Description = strings.TrimSpace(description)
	p.touch()
	return nil
}

// AddPiece appends a piece, assigning an identity when it has none
func (p *Plan) AddPiece(piece CutPiece) (CutPiece, error) {
	if err := piece.Validate(); err != nil {
		return CutPiece{}, err
	}
	if piece.ID == "" {
		piece.ID = uuid.New().String()
	}
	p.RequiredPieces = append(p.RequiredPieces, piece)
	p.touch()
	return piece, nil
}

// UpdatePiece replaces the attributes of an existing piece, keeping its identity
func (p *Plan) UpdatePiece(pieceID string, update CutPiece) (CutPiece, error) {
	if err := update.Validate(); err != nil {
		return CutPiece{}, err
	}
	for i := range p.RequiredPieces {
		if p.RequiredPieces[i].ID == pieceID {
			update.ID = pieceID
			p.RequiredPieces[i] = update
			p.touch()
			return update, nil
		}
	}
	return CutPiece{}, ErrPieceNotFound
}

// RemovePiece deletes a piece from the plan
func (p *Plan) RemovePiece(pieceID string) error {
	for i := range p.RequiredPieces {
		if p.RequiredPieces[i].ID == pieceID {
			p.RequiredPieces = append(p.RequiredPieces[:i], p.RequiredPieces[i+1:]...)
			p.touch()
			return nil
		}
	}
	return ErrPieceNotFound
}

// TotalPieceCount is the number of unit pieces the plan expands to
func (p *Plan) TotalPieceCount() int {
	total := 0
	for _, piece := range p.RequiredPieces {
		total += piece.Quantity
	}
	return total
}

// Clone returns a deep copy of the plan
func (p *Plan) Clone() Plan {
	out := *p
	out.RequiredPieces = append([]CutPiece(nil), p.RequiredPieces...)
	if out.RequiredPieces == nil {
		out.RequiredPieces = make([]CutPiece, 0)
	}
	return out
}

func (p *Plan) touch() {
	p.UpdatedAt = now()
}
