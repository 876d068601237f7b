package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCutPiece_QuantityBounds(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		wantErr  bool
	}{
		{"zero", 0, true},
		{"one", 1, false},
		{"at cap", MaxPieceQuantity, false},
		{"above cap", MaxPieceQuantity + 1, true},
		{"overflowing sum", math.MaxInt/2 + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCutPiece(500, tt.quantity, "leg", typeA)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPieceQuantity)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPlan_RejectsOversizedQuantity(t *testing.T) {
	plan, err := NewPlan("Gate", "")
	require.NoError(t, err)

	_, err = plan.AddPiece(piece(500, math.MaxInt/2+1, "leg", typeA))
	assert.ErrorIs(t, err, ErrInvalidPieceQuantity)

	added, err := plan.AddPiece(piece(500, 2, "leg", typeA))
	require.NoError(t, err)
	_, err = plan.UpdatePiece(added.ID, piece(500, MaxPieceQuantity+1, "leg", typeA))
	assert.ErrorIs(t, err, ErrInvalidPieceQuantity)
	assert.Equal(t, 2, plan.TotalPieceCount())
}
