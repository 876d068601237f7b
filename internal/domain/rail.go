package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Rail errors
var (
	ErrInvalidRailLength = errors.New("invalid rail: length must be positive")
	ErrInvalidRailType   = errors.New("invalid rail type: width and thickness must be positive")
	ErrInvalidCutLength  = errors.New("invalid cut: length must be positive and not exceed the rail length")
	ErrRailNotFound      = errors.New("rail not found")
)

// RailType is the cross-section of a rail. Two rails are interchangeable
// for a piece when their types are equal.
type RailType struct {
	Width     int `bson:"width" json:"width"`
	Thickness int `bson:"thickness" json:"thickness"`
}

// Label renders the type as "<width>x<thickness>"
func (t RailType) Label() string {
	return fmt.Sprintf("%dx%d", t.Width, t.Thickness)
}

// IsValid checks that both dimensions are positive
func (t RailType) IsValid() bool {
	return t.Width > 0 && t.Thickness > 0
}

// Rail is a physical bar of stock in the live pool. Rails are never
// shortened in place: a cut replaces the rail with a remainder.
type Rail struct {
	ID             string    `bson:"_id" json:"id"`
	Length         int       `bson:"length" json:"length"`
	Width          int       `bson:"width" json:"width"`
	Thickness      int       `bson:"thickness" json:"thickness"`
	IsRemainder    bool      `bson:"isRemainder" json:"isRemainder"`
	OriginalRailID string    `bson:"originalRailId,omitempty" json:"originalRailId,omitempty"`
	Notes          string    `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
}

// NewRail creates a full-length stock rail with a fresh identity
func NewRail(length int, railType RailType, notes string) (*Rail, error) {
	rail := &Rail{
		ID:        uuid.New().String(),
		Length:    length,
		Width:     railType.Width,
		Thickness: railType.Thickness,
		Notes:     notes,
		CreatedAt: now(),
	}
	if err := rail.Validate(); err != nil {
		return nil, err
	}
	return rail, nil
}

// NewRemainder creates a remainder rail cut from originalRailID
func NewRemainder(length int, railType RailType, originalRailID, notes string) (*Rail, error) {
	rail, err := NewRail(length, railType, notes)
	if err != nil {
		return nil, err
	}
	rail.IsRemainder = true
	rail.OriginalRailID = originalRailID
	return rail, nil
}

// Type returns the rail's cross-section
func (r Rail) Type() RailType {
	return RailType{Width: r.Width, Thickness: r.Thickness}
}

// Validate checks the rail invariants
func (r Rail) Validate() error {
	if r.Length <= 0 {
		return ErrInvalidRailLength
	}
	if !r.Type().IsValid() {
		return ErrInvalidRailType
	}
	return nil
}

// Fits reports whether a unit of the piece can be cut from the rail
func (r Rail) Fits(piece CutPiece) bool {
	return r.Type() == piece.RailType && r.Length >= piece.Length
}

// Cut computes the result of cutting cutLength off the rail. Any nonzero
// leftover becomes a remainder rail; a zero leftover returns nil, meaning
// the rail is fully consumed. The receiver is not modified.
func (r *Rail) Cut(cutLength int, purpose string) (*Rail, error) {
	if cutLength <= 0 || cutLength > r.Length {
		return nil, ErrInvalidCutLength
	}

	leftover := r.Length - cutLength
	if leftover == 0 {
		return nil, nil
	}

	note := fmt.Sprintf("Remainder of %dmm rail after cutting %dmm", r.Length, cutLength)
	if purpose != "" {
		note += " for " + purpose
	}
	return NewRemainder(leftover, r.Type(), r.ID, note)
}

// CloneRails returns a copy of the pool that shares no rail pointers with the input
func CloneRails(rails []*Rail) []Rail {
	out := make([]Rail, 0, len(rails))
	for _, r := range rails {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

var now = func() time.Time {
	return time.Now().UTC()
}
