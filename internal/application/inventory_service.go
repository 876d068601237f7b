package application

import (
	"context"
	"fmt"
	"time"

	"github.com/tiagodcc/ikts/internal/domain"
	"github.com/tiagodcc/ikts/pkg/errors"
	"github.com/tiagodcc/ikts/pkg/logging"
	"github.com/tiagodcc/ikts/pkg/metrics"
)

// InventoryApplicationService applies mutations to the live rail pool
type InventoryApplicationService struct {
	repo     domain.RailRepository
	notifier domain.RemainderNotifier
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewInventoryApplicationService creates a new InventoryApplicationService
func NewInventoryApplicationService(
	repo domain.RailRepository,
	notifier domain.RemainderNotifier,
	m *metrics.Metrics,
	logger *logging.Logger,
) *InventoryApplicationService {
	return &InventoryApplicationService{
		repo:     repo,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// AddRail brings a new full-length rail into the pool
func (s *InventoryApplicationService) AddRail(ctx context.Context, cmd AddRailCommand) (*RailDTO, error) {
	rail, err := domain.NewRail(cmd.Length, domain.RailType{Width: cmd.Width, Thickness: cmd.Thickness}, cmd.Notes)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.addRail(ctx, rail); err != nil {
		return nil, err
	}
	return ToRailDTO(rail), nil
}

func (s *InventoryApplicationService) addRail(ctx context.Context, rail *domain.Rail) error {
	event := &domain.RailAddedEvent{
		RailID:      rail.ID,
		Length:      rail.Length,
		RailType:    rail.Type(),
		IsRemainder: rail.IsRemainder,
		AddedAt:     rail.CreatedAt,
	}
	if err := s.repo.Save(ctx, rail, event); err != nil {
		s.logger.WithError(err).Error("Failed to add rail", "railId", rail.ID)
		return fmt.Errorf("failed to add rail: %w", err)
	}

	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "rail.added",
		EntityType: "rail",
		EntityID:   rail.ID,
		Action:     "added",
		Data: map[string]any{
			"length":   rail.Length,
			"railType": rail.Type().Label(),
		},
	})
	s.refreshGauges(ctx)
	return nil
}

// addRailOnce adds rail unless the pool already holds its identity
func (s *InventoryApplicationService) addRailOnce(ctx context.Context, rail *domain.Rail) error {
	existing, err := s.lookupRail(ctx, rail.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		s.logger.WithContext(ctx).Debug("Rail already in the pool", "railId", rail.ID)
		return nil
	}
	return s.addRail(ctx, rail)
}

// AddRemainder stores an offcut as a remainder rail and signals its box
func (s *InventoryApplicationService) AddRemainder(ctx context.Context, cmd AddRemainderCommand) (*RailDTO, error) {
	remainder, err := domain.NewRemainder(cmd.Length, cmd.RailType, cmd.OriginalRailID, cmd.Notes)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if cmd.RailID != "" {
		existing, err := s.lookupRail(ctx, cmd.RailID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.logger.WithContext(ctx).Debug("Remainder already stored", "railId", existing.ID)
			return ToRailDTO(existing), nil
		}
		remainder.ID = cmd.RailID
	}

	if err := s.storeRemainder(ctx, remainder); err != nil {
		return nil, err
	}
	return ToRailDTO(remainder), nil
}

// storeRemainder saves a remainder together with any extra events of the
// mutation that produced it
func (s *InventoryApplicationService) storeRemainder(ctx context.Context, remainder *domain.Rail, extra ...domain.DomainEvent) error {
	created := &domain.RemainderCreatedEvent{
		RailID:         remainder.ID,
		OriginalRailID: remainder.OriginalRailID,
		Length:         remainder.Length,
		RailType:       remainder.Type(),
		CreatedAt:      remainder.CreatedAt,
	}
	if box, ok := domain.RemainderBox(remainder.Length); ok {
		created.Box = &box
	}

	events := append(extra, created)
	if err := s.repo.Save(ctx, remainder, events...); err != nil {
		s.logger.WithError(err).Error("Failed to store remainder", "railId", remainder.ID)
		return fmt.Errorf("failed to store remainder: %w", err)
	}

	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "remainder.created",
		EntityType: "rail",
		EntityID:   remainder.ID,
		Action:     "created",
		RelatedIDs: map[string]string{"originalRailId": remainder.OriginalRailID},
		Data:       map[string]any{"length": remainder.Length},
	})

	if s.notifier != nil {
		s.notifier.SignalRemainder(ctx, remainder.Length)
	}
	s.refreshGauges(ctx)
	return nil
}

// CutRail cuts cutLength off a live rail. A nonzero leftover replaces the
// rail with a remainder; a zero leftover removes it.
func (s *InventoryApplicationService) CutRail(ctx context.Context, cmd CutRailCommand) (*CutResultDTO, error) {
	rail, err := s.findRail(ctx, cmd.RailID)
	if err != nil {
		return nil, err
	}

	remainder, err := rail.Cut(cmd.CutLength, cmd.Purpose)
	if err != nil {
		s.recordCut("rejected")
		return nil, errors.ErrValidation(err.Error())
	}

	result := &CutResultDTO{
		RailID:    rail.ID,
		CutLength: cmd.CutLength,
		Leftover:  rail.Length - cmd.CutLength,
	}
	cut := &domain.RailCutEvent{
		RailID:    rail.ID,
		CutLength: cmd.CutLength,
		Purpose:   cmd.Purpose,
		Leftover:  result.Leftover,
		CutAt:     time.Now().UTC(),
	}

	if remainder == nil {
		if err := s.repo.Delete(ctx, rail.ID, cut); err != nil {
			s.logger.WithError(err).Error("Failed to remove consumed rail", "railId", rail.ID)
			return nil, fmt.Errorf("failed to remove consumed rail: %w", err)
		}
		result.Consumed = true
		s.recordCut("consumed")
		s.refreshGauges(ctx)
		s.logger.Info("Rail fully consumed", "railId", rail.ID, "cutLength", cmd.CutLength)
		return result, nil
	}

	cut.RemainderID = remainder.ID
	if err := s.storeRemainder(ctx, remainder, cut); err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, rail.ID); err != nil {
		s.logger.WithError(err).Error("Failed to replace cut rail", "railId", rail.ID, "remainderId", remainder.ID)
		return nil, fmt.Errorf("failed to replace cut rail: %w", err)
	}

	s.recordCut("remainder")
	s.refreshGauges(ctx)
	result.Remainder = ToRailDTO(remainder)
	return result, nil
}

// RemoveRail takes a rail out of the pool
func (s *InventoryApplicationService) RemoveRail(ctx context.Context, cmd RemoveRailCommand) error {
	rail, err := s.findRail(ctx, cmd.RailID)
	if err != nil {
		return err
	}
	return s.removeRail(ctx, rail, cmd.Reason)
}

func (s *InventoryApplicationService) removeRail(ctx context.Context, rail *domain.Rail, reason string, extra ...domain.DomainEvent) error {
	removed := &domain.RailRemovedEvent{
		RailID:    rail.ID,
		Length:    rail.Length,
		Reason:    reason,
		RemovedAt: time.Now().UTC(),
	}
	events := append(extra, removed)
	if err := s.repo.Delete(ctx, rail.ID, events...); err != nil {
		s.logger.WithError(err).Error("Failed to remove rail", "railId", rail.ID)
		return fmt.Errorf("failed to remove rail: %w", err)
	}

	s.logger.Info("Removed rail", "railId", rail.ID, "reason", reason)
	s.refreshGauges(ctx)
	return nil
}

// GetRail retrieves a rail by ID
func (s *InventoryApplicationService) GetRail(ctx context.Context, railID string) (*RailDTO, error) {
	rail, err := s.findRail(ctx, railID)
	if err != nil {
		return nil, err
	}
	return ToRailDTO(rail), nil
}

// ListRails lists the live pool, optionally filtered by cross-section
func (s *InventoryApplicationService) ListRails(ctx context.Context, query ListRailsQuery) (*InventorySummaryDTO, error) {
	rails, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list rails")
		return nil, fmt.Errorf("failed to list rails: %w", err)
	}

	summary := &InventorySummaryDTO{Rails: make([]RailDTO, 0, len(rails))}
	for _, rail := range rails {
		if query.Width > 0 && rail.Width != query.Width {
			continue
		}
		if query.Thickness > 0 && rail.Thickness != query.Thickness {
			continue
		}
		summary.Rails = append(summary.Rails, *ToRailDTO(rail))
		summary.TotalLength += rail.Length
		if rail.IsRemainder {
			summary.Remainders++
		} else {
			summary.FullLength++
		}
	}
	return summary, nil
}

// Snapshot returns a copy of the live pool that the allocation engine may
// consume without touching stored rails
func (s *InventoryApplicationService) Snapshot(ctx context.Context) ([]domain.Rail, error) {
	rails, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to snapshot rails")
		return nil, fmt.Errorf("failed to snapshot rails: %w", err)
	}
	return domain.CloneRails(rails), nil
}

// lookupRail returns nil without an error when the rail is not in the pool
func (s *InventoryApplicationService) lookupRail(ctx context.Context, railID string) (*domain.Rail, error) {
	rail, err := s.repo.FindByID(ctx, railID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get rail", "railId", railID)
		return nil, fmt.Errorf("failed to get rail: %w", err)
	}
	return rail, nil
}

func (s *InventoryApplicationService) findRail(ctx context.Context, railID string) (*domain.Rail, error) {
	rail, err := s.lookupRail(ctx, railID)
	if err != nil {
		return nil, err
	}
	if rail == nil {
		return nil, errors.ErrNotFoundWithID("rail", railID)
	}
	return rail, nil
}

func (s *InventoryApplicationService) recordCut(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordRailCut(outcome)
	}
}

func (s *InventoryApplicationService) refreshGauges(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	rails, err := s.repo.FindAll(ctx)
	if err != nil {
		return
	}
	full, remainders := 0, 0
	for _, rail := range rails {
		if rail.IsRemainder {
			remainders++
		} else {
			full++
		}
	}
	s.metrics.SetInventoryRails(full, remainders)
}
