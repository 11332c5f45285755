package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/logger"
)

const (
	ruleCacheTTL     = 5 * time.Minute
	ruleCacheCleanup = 10 * time.Minute
)

// Service manages recurring weekly availability and provider-center
// assignments. All writes are validated here, at the store boundary, so
// malformed rules never reach the slot generator. Rule reads go through a
// short-lived cache that is purged on every write: generated slots must
// never outlive a schedule edit.
type Service struct {
	repo        repository.ScheduleRepository
	assignments repository.AssignmentRepository
	cache       *gocache.Cache
	logger      *logger.Logger
}

func NewService(repo repository.ScheduleRepository, assignments repository.AssignmentRepository, logger *logger.Logger) *Service {
	return &Service{
		repo:        repo,
		assignments: assignments,
		cache:       gocache.New(ruleCacheTTL, ruleCacheCleanup),
		logger:      logger,
	}
}

// PutSchedule replaces the provider's rules for the listed weekdays
// wholesale at the given location. The provider must be assigned to the
// location (the home-visit location counts once enabled).
func (s *Service) PutSchedule(ctx context.Context, providerID, locationID uuid.UUID, req *model.PutScheduleRequest) ([]*model.ScheduleRule, error) {
	assigned, err := s.assignments.IsAssigned(ctx, providerID, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to check assignment: %w", err)
	}
	if !assigned {
		return nil, apperrors.Forbidden("provider is not assigned to this location")
	}

	rules := make([]*model.ScheduleRule, 0, len(req.Rules))
	seen := make(map[int]bool, len(req.Rules))
	for i := range req.Rules {
		rule, err := buildRule(providerID, locationID, &req.Rules[i])
		if err != nil {
			return nil, err
		}
		if seen[rule.Weekday] {
			return nil, apperrors.InvalidScheduleRule(fmt.Sprintf("duplicate rule for weekday %d", rule.Weekday))
		}
		seen[rule.Weekday] = true
		rules = append(rules, rule)
	}

	if err := s.repo.PutRules(ctx, rules); err != nil {
		return nil, fmt.Errorf("failed to put schedule rules: %w", err)
	}

	s.purge(providerID, locationID)
	s.logger.Info("schedule updated",
		"provider_id", providerID.String(),
		"location_id", locationID.String(),
		"rules", len(rules))
	return rules, nil
}

// GetRule returns the rule for one weekday, reading through the cache.
// Returns a NOT_FOUND error when the day has no rule.
func (s *Service) GetRule(ctx context.Context, providerID, locationID uuid.UUID, weekday int) (*model.ScheduleRule, error) {
	day, err := model.NormalizeWeekday(weekday)
	if err != nil {
		return nil, apperrors.InvalidScheduleRule(err.Error())
	}

	key := ruleKey(providerID, locationID, day)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.ScheduleRule), nil
	}

	rule, err := s.repo.GetRule(ctx, providerID, locationID, day)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, rule, gocache.DefaultExpiration)
	return rule, nil
}

// WeekSchedule returns every rule for the (provider, location) pair,
// ordered by weekday.
func (s *Service) WeekSchedule(ctx context.Context, providerID, locationID uuid.UUID) ([]*model.ScheduleRule, error) {
	return s.repo.ListRules(ctx, providerID, locationID)
}

func (s *Service) AssignProvider(ctx context.Context, providerID uuid.UUID, req *model.AssignProviderRequest) (*model.ProviderCenterAssignment, error) {
	if req.LocationID == model.HomeVisitLocationID {
		return nil, apperrors.BadRequest("home visit is toggled via the home-visit endpoint", nil)
	}
	a := &model.ProviderCenterAssignment{
		ProviderID: providerID,
		LocationID: req.LocationID,
		IsPrimary:  req.IsPrimary,
	}
	if err := s.assignments.Assign(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to assign provider: %w", err)
	}
	return a, nil
}

func (s *Service) UnassignProvider(ctx context.Context, providerID, locationID uuid.UUID) error {
	if err := s.assignments.Unassign(ctx, providerID, locationID); err != nil {
		return fmt.Errorf("failed to unassign provider: %w", err)
	}
	if err := s.repo.DeleteRules(ctx, providerID, locationID); err != nil {
		return fmt.Errorf("failed to delete schedule rules: %w", err)
	}
	s.purge(providerID, locationID)
	return nil
}

func (s *Service) ListAssignments(ctx context.Context, providerID uuid.UUID) ([]*model.ProviderCenterAssignment, error) {
	return s.assignments.ListForProvider(ctx, providerID)
}

// SetHomeVisit toggles the synthetic home-visit location for a provider.
// Disabling removes the home-visit rule set; real-center rules are never
// touched.
func (s *Service) SetHomeVisit(ctx context.Context, providerID uuid.UUID, enabled bool) error {
	if enabled {
		a := &model.ProviderCenterAssignment{
			ProviderID: providerID,
			LocationID: model.HomeVisitLocationID,
		}
		if err := s.assignments.Assign(ctx, a); err != nil {
			return fmt.Errorf("failed to enable home visits: %w", err)
		}
		return nil
	}

	if err := s.repo.DeleteRules(ctx, providerID, model.HomeVisitLocationID); err != nil {
		return fmt.Errorf("failed to delete home visit rules: %w", err)
	}
	if err := s.assignments.Unassign(ctx, providerID, model.HomeVisitLocationID); err != nil {
		return fmt.Errorf("failed to disable home visits: %w", err)
	}
	s.purge(providerID, model.HomeVisitLocationID)
	return nil
}

func (s *Service) purge(providerID, locationID uuid.UUID) {
	for day := 0; day <= 6; day++ {
		s.cache.Delete(ruleKey(providerID, locationID, day))
	}
}

func ruleKey(providerID, locationID uuid.UUID, weekday int) string {
	return fmt.Sprintf("rule:%s:%s:%d", providerID, locationID, weekday)
}

// buildRule validates one weekday submission and produces the canonical
// row. Day indices are normalized here and nowhere else.
func buildRule(providerID, locationID uuid.UUID, in *model.ScheduleRuleInput) (*model.ScheduleRule, error) {
	day, err := model.NormalizeWeekday(in.Weekday)
	if err != nil {
		return nil, apperrors.InvalidScheduleRule(err.Error())
	}
	if in.IsAvailable == nil {
		return nil, apperrors.InvalidScheduleRule("is_available must be set explicitly")
	}

	rule := &model.ScheduleRule{
		ProviderID:       providerID,
		LocationID:       locationID,
		Weekday:          day,
		IsAvailable:      *in.IsAvailable,
		StartTime:        in.StartTime,
		EndTime:          in.EndTime,
		SlotDurationMins: in.SlotDurationMins,
		Notes:            in.Notes,
	}

	if !rule.IsAvailable {
		// Unavailable days keep placeholder bounds; the generator never
		// reads them.
		if rule.StartTime == "" {
			rule.StartTime = "00:00"
		}
		if rule.EndTime == "" {
			rule.EndTime = "00:00"
		}
		if rule.SlotDurationMins <= 0 {
			rule.SlotDurationMins = 30
		}
		return rule, nil
	}

	if rule.SlotDurationMins <= 0 {
		return nil, apperrors.InvalidScheduleRule("slot duration must be positive")
	}

	start, err := model.ParseClockTime(rule.StartTime)
	if err != nil {
		return nil, apperrors.InvalidScheduleRule(err.Error())
	}
	end, err := model.ParseClockTime(rule.EndTime)
	if err != nil {
		return nil, apperrors.InvalidScheduleRule(err.Error())
	}
	if start >= end {
		return nil, apperrors.InvalidScheduleRule("start time must be before end time")
	}

	if (in.BreakStart == nil) != (in.BreakEnd == nil) {
		return nil, apperrors.InvalidScheduleRule("break start and end must be set together")
	}
	if in.BreakStart != nil {
		bs, err := model.ParseClockTime(*in.BreakStart)
		if err != nil {
			return nil, apperrors.InvalidScheduleRule(err.Error())
		}
		be, err := model.ParseClockTime(*in.BreakEnd)
		if err != nil {
			return nil, apperrors.InvalidScheduleRule(err.Error())
		}
		switch {
		case bs == be:
			// Zero-length break means no break.
		case bs > be:
			return nil, apperrors.InvalidScheduleRule("break window is inverted")
		case bs < start || be > end:
			return nil, apperrors.InvalidScheduleRule("break window must lie within working hours")
		default:
			rule.BreakStart = in.BreakStart
			rule.BreakEnd = in.BreakEnd
		}
	}

	return rule, nil
}
