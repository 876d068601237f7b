package domain

import (
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
)

// SourceKind says where the rail of a cut suggestion comes from
type SourceKind string

const (
	// SourceInventory is a full-length rail already in the live pool
	SourceInventory SourceKind = "inventory"
	// SourceRemainder is a live remainder, or an offcut produced earlier in the same run
	SourceRemainder SourceKind = "remainder"
	// SourceNewStock is a standard-length rail that has to be brought in
	SourceNewStock SourceKind = "new-stock"
)

// CutSuggestion assigns one unit piece to a source rail
type CutSuggestion struct {
	SourceRail      Rail       `bson:"sourceRail" json:"sourceRail"`
	Piece           CutPiece   `bson:"piece" json:"piece"`
	RemainderLength int        `bson:"remainderLength" json:"remainderLength"`
	Waste           int        `bson:"waste" json:"waste"`
	IsOptimal       bool       `bson:"isOptimal" json:"isOptimal"`
	SourceKind      SourceKind `bson:"sourceKind" json:"sourceKind"`
	// PhysicalRailID identifies the bar the cut is taken from. Offcuts
	// produced within the run keep the identity of the bar they came from.
	PhysicalRailID string `bson:"physicalRailId" json:"physicalRailId"`
}

// UnallocatedPiece is a unit piece longer than every standard stock length
type UnallocatedPiece struct {
	Piece                 CutPiece `bson:"piece" json:"piece"`
	LargestStandardLength int      `bson:"largestStandardLength" json:"largestStandardLength"`
}

// MaterialPlan is the frozen result of one allocation run
type MaterialPlan struct {
	Plan           Plan               `bson:"plan" json:"plan"`
	Suggestions    []CutSuggestion    `bson:"suggestions" json:"suggestions"`
	TotalWaste     int                `bson:"totalWaste" json:"totalWaste"`
	UsedRemainders int                `bson:"usedRemainders" json:"usedRemainders"`
	NewRailsNeeded int                `bson:"newRailsNeeded" json:"newRailsNeeded"`
	Unallocated    []UnallocatedPiece `bson:"unallocated,omitempty" json:"unallocated,omitempty"`
	GeneratedAt    time.Time          `bson:"generatedAt" json:"generatedAt"`
}

// HasUnallocated reports whether some pieces could not be sourced
func (m *MaterialPlan) HasUnallocated() bool {
	return len(m.Unallocated) > 0
}

// FindBestRailForPiece picks the rail a single unit of piece should be cut
// from: remainders before full rails, then the shortest that fits. It
// returns nil when no rail in stock matches the type and length.
func FindBestRailForPiece(stock []Rail, piece CutPiece, settings PlannerSettings) *CutSuggestion {
	settings = settings.Normalized()

	best := -1
	for i := range stock {
		if !stock[i].Fits(piece) {
			continue
		}
		if best < 0 || preferRail(stock[i], stock[best]) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}

	rail := stock[best]
	kind := SourceInventory
	if rail.IsRemainder {
		kind = SourceRemainder
	}
	suggestion := suggest(rail, piece, kind, settings)
	return &suggestion
}

// preferRail orders candidates: remainder rails first, then ascending length.
// Ties keep stock order.
func preferRail(a, b Rail) bool {
	if a.IsRemainder != b.IsRemainder {
		return a.IsRemainder
	}
	return a.Length < b.Length
}

func suggest(rail Rail, piece CutPiece, kind SourceKind, settings PlannerSettings) CutSuggestion {
	leftover := rail.Length - piece.Length
	remainder, waste := settings.Classify(leftover)

	return CutSuggestion{
		SourceRail:      rail,
		Piece:           piece,
		RemainderLength: remainder,
		Waste:           waste,
		IsOptimal:       rail.IsRemainder || leftover < settings.MinUsableLength,
		SourceKind:      kind,
		PhysicalRailID:  rail.ID,
	}
}

// GenerateMaterialPlan allocates every unit piece of the plan, largest
// first, against a working copy of stock. Usable offcuts go back into the
// working pool so later pieces can consume them. Pieces with no fitting
// rail are sourced from the smallest standard length that holds them;
// pieces longer than every standard length are reported as unallocated.
// The caller's stock is never modified.
func GenerateMaterialPlan(plan Plan, stock []Rail, settings PlannerSettings) MaterialPlan {
	settings = settings.Normalized()

	result := MaterialPlan{
		Plan:        plan.Clone(),
		Suggestions: make([]CutSuggestion, 0),
		GeneratedAt: now(),
	}

	pool := slices.Clone(stock)
	// physical maps working-pool rail IDs to the bar they were cut from
	physical := make(map[string]string, len(pool))
	for _, r := range pool {
		physical[r.ID] = r.ID
	}
	created := make(map[string]bool)

	for _, piece := range expandPieces(plan.RequiredPieces) {
		if suggestion := FindBestRailForPiece(pool, piece, settings); suggestion != nil {
			consumed := suggestion.SourceRail
			pool = removeRail(pool, consumed.ID)

			suggestion.PhysicalRailID = physical[consumed.ID]
			if created[consumed.ID] {
				suggestion.SourceKind = SourceRemainder
			}
			if consumed.IsRemainder {
				result.UsedRemainders++
			}

			pool = addWorkingRemainder(pool, *suggestion, physical, created)
			result.TotalWaste += suggestion.Waste
			result.Suggestions = append(result.Suggestions, *suggestion)
			continue
		}

		length, ok := settings.StandardLengthFor(piece.Length)
		if !ok {
			result.Unallocated = append(result.Unallocated, UnallocatedPiece{
				Piece:                 piece,
				LargestStandardLength: settings.LargestStandardLength(),
			})
			continue
		}

		newRail := Rail{
			ID:        uuid.New().String(),
			Length:    length,
			Width:     piece.RailType.Width,
			Thickness: piece.RailType.Thickness,
			Notes:     "New stock",
			CreatedAt: result.GeneratedAt,
		}
		physical[newRail.ID] = newRail.ID
		suggestion := suggest(newRail, piece, SourceNewStock, settings)
		result.NewRailsNeeded++

		pool = addWorkingRemainder(pool, suggestion, physical, created)
		result.TotalWaste += suggestion.Waste
		result.Suggestions = append(result.Suggestions, suggestion)
	}

	return result
}

// expandPieces turns each piece into Quantity unit pieces with fresh
// identities, sorted by descending length. Equal lengths keep plan order.
func expandPieces(pieces []CutPiece) []CutPiece {
	units := make([]CutPiece, 0, len(pieces))
	for _, p := range pieces {
		for i := 0; i < p.Quantity; i++ {
			unit := p
			unit.ID = uuid.New().String()
			unit.Quantity = 1
			units = append(units, unit)
		}
	}
	sort.SliceStable(units, func(i, j int) bool {
		return units[i].Length > units[j].Length
	})
	return units
}

func addWorkingRemainder(pool []Rail, s CutSuggestion, physical map[string]string, created map[string]bool) []Rail {
	if s.RemainderLength == 0 {
		return pool
	}
	remainder := Rail{
		ID:             uuid.New().String(),
		Length:         s.RemainderLength,
		Width:          s.SourceRail.Width,
		Thickness:      s.SourceRail.Thickness,
		IsRemainder:    true,
		OriginalRailID: s.SourceRail.ID,
		CreatedAt:      s.SourceRail.CreatedAt,
	}
	physical[remainder.ID] = s.PhysicalRailID
	created[remainder.ID] = true
	return append(pool, remainder)
}

func removeRail(pool []Rail, id string) []Rail {
	for i := range pool {
		if pool[i].ID == id {
			return slices.Delete(pool, i, i+1)
		}
	}
	return pool
}
