package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRail_Cut(t *testing.T) {
	r, err := NewRail(2000, typeA, "")
	require.NoError(t, err)

	rem, err := r.Cut(1500, "frame")
	require.NoError(t, err)
	require.NotNil(t, rem)
	assert.Equal(t, 500, rem.Length)
	assert.True(t, rem.IsRemainder)
	assert.Equal(t, r.ID, rem.OriginalRailID)
	assert.Contains(t, rem.Notes, "1500mm")
	assert.Contains(t, rem.Notes, "frame")
	assert.Equal(t, 2000, r.Length)

	// small leftovers are still kept by the primitive
	rem, err = r.Cut(1990, "")
	require.NoError(t, err)
	assert.Equal(t, 10, rem.Length)

	rem, err = r.Cut(2000, "")
	require.NoError(t, err)
	assert.Nil(t, rem)

	for _, bad := range []int{0, -1, 2001} {
		_, err = r.Cut(bad, "")
		assert.ErrorIs(t, err, ErrInvalidCutLength)
	}
}

func TestNewRail_Validation(t *testing.T) {
	_, err := NewRail(0, typeA, "")
	assert.ErrorIs(t, err, ErrInvalidRailLength)

	_, err = NewRail(100, RailType{Width: 0, Thickness: 2}, "")
	assert.ErrorIs(t, err, ErrInvalidRailType)
}

func TestRailType_Label(t *testing.T) {
	assert.Equal(t, "40x5", typeA.Label())
}

func TestRemainderBox(t *testing.T) {
	tests := []struct {
		length int
		box    int
		ok     bool
	}{
		{99, 0, false},
		{100, RemainderBoxSmall, true},
		{299, RemainderBoxSmall, true},
		{300, RemainderBoxLarge, true},
		{5000, RemainderBoxLarge, true},
	}

	for _, tt := range tests {
		box, ok := RemainderBox(tt.length)
		if box != tt.box || ok != tt.ok {
			t.Errorf("RemainderBox(%d) = (%d, %v), want (%d, %v)", tt.length, box, ok, tt.box, tt.ok)
		}
	}
}

func TestPlannerSettings(t *testing.T) {
	s := PlannerSettings{StandardLengths: []int{3000, 1000, 3000}}.Normalized()
	assert.Equal(t, DefaultMinUsableLength, s.MinUsableLength)
	assert.Equal(t, []int{1000, 3000}, s.StandardLengths)

	l, ok := s.StandardLengthFor(1001)
	assert.True(t, ok)
	assert.Equal(t, 3000, l)
	_, ok = s.StandardLengthFor(3001)
	assert.False(t, ok)
	assert.Equal(t, 3000, s.LargestStandardLength())

	r, w := s.Classify(99)
	assert.Equal(t, [2]int{0, 99}, [2]int{r, w})
	r, w = s.Classify(100)
	assert.Equal(t, [2]int{100, 0}, [2]int{r, w})

	assert.ErrorIs(t, PlannerSettings{MinUsableLength: -1}.Validate(), ErrInvalidSettings)
	assert.ErrorIs(t, PlannerSettings{MinUsableLength: 0, StandardLengths: []int{1000}}.Validate(), ErrInvalidSettings)
	assert.ErrorIs(t, PlannerSettings{MinUsableLength: 100, StandardLengths: []int{0}}.Validate(), ErrInvalidSettings)
	assert.NoError(t, DefaultPlannerSettings().Validate())
}

func TestPlan_Pieces(t *testing.T) {
	_, err := NewPlan("  ", "")
	assert.ErrorIs(t, err, ErrPlanNameRequired)

	p, err := NewPlan("Gate", "garden gate")
	require.NoError(t, err)

	added, err := p.AddPiece(CutPiece{Length: 1200, Quantity: 2, Purpose: "post", RailType: typeA})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)

	_, err = p.AddPiece(CutPiece{Length: 100, Quantity: 0, RailType: typeA})
	assert.ErrorIs(t, err, ErrInvalidPieceQuantity)

	updated, err := p.UpdatePiece(added.ID, CutPiece{Length: 1100, Quantity: 3, Purpose: "post", RailType: typeA})
	require.NoError(t, err)
	assert.Equal(t, added.ID, updated.ID)
	assert.Equal(t, 3, p.TotalPieceCount())

	_, err = p.UpdatePiece("missing", updated)
	assert.ErrorIs(t, err, ErrPieceNotFound)

	clone := p.Clone()
	require.NoError(t, p.RemovePiece(added.ID))
	assert.Zero(t, p.TotalPieceCount())
	assert.Len(t, clone.RequiredPieces, 1)
	assert.ErrorIs(t, p.RemovePiece(added.ID), ErrPieceNotFound)

	require.NoError(t, p.Rename("Gate v2", ""))
	assert.Equal(t, "Gate v2", p.Name)
	assert.ErrorIs(t, p.Rename("", ""), ErrPlanNameRequired)
}
