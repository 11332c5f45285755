package schedule

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-engine/internal/model"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/logger"
)

type memScheduleRepo struct {
	rules map[string]*model.ScheduleRule
	reads int
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{rules: make(map[string]*model.ScheduleRule)}
}

func (r *memScheduleRepo) key(providerID, locationID uuid.UUID, weekday int) string {
	return fmt.Sprintf("%s:%s:%d", providerID, locationID, weekday)
}

func (r *memScheduleRepo) GetRule(_ context.Context, providerID, locationID uuid.UUID, weekday int) (*model.ScheduleRule, error) {
	r.reads++
	rule, ok := r.rules[r.key(providerID, locationID, weekday)]
	if !ok {
		return nil, apperrors.NotFound("schedule rule", nil)
	}
	return rule, nil
}

func (r *memScheduleRepo) ListRules(_ context.Context, providerID, locationID uuid.UUID) ([]*model.ScheduleRule, error) {
	var out []*model.ScheduleRule
	for day := 0; day <= 6; day++ {
		if rule, ok := r.rules[r.key(providerID, locationID, day)]; ok {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *memScheduleRepo) PutRules(_ context.Context, rules []*model.ScheduleRule) error {
	for _, rule := range rules {
		r.rules[r.key(rule.ProviderID, rule.LocationID, rule.Weekday)] = rule
	}
	return nil
}

func (r *memScheduleRepo) DeleteRules(_ context.Context, providerID, locationID uuid.UUID) error {
	for day := 0; day <= 6; day++ {
		delete(r.rules, r.key(providerID, locationID, day))
	}
	return nil
}

type memAssignmentRepo struct {
	assigned map[string]*model.ProviderCenterAssignment
}

func newMemAssignmentRepo() *memAssignmentRepo {
	return &memAssignmentRepo{assigned: make(map[string]*model.ProviderCenterAssignment)}
}

func (r *memAssignmentRepo) key(providerID, locationID uuid.UUID) string {
	return providerID.String() + ":" + locationID.String()
}

func (r *memAssignmentRepo) Assign(_ context.Context, a *model.ProviderCenterAssignment) error {
	r.assigned[r.key(a.ProviderID, a.LocationID)] = a
	return nil
}

func (r *memAssignmentRepo) Unassign(_ context.Context, providerID, locationID uuid.UUID) error {
	delete(r.assigned, r.key(providerID, locationID))
	return nil
}

func (r *memAssignmentRepo) ListForProvider(_ context.Context, providerID uuid.UUID) ([]*model.ProviderCenterAssignment, error) {
	var out []*model.ProviderCenterAssignment
	for _, a := range r.assigned {
		if a.ProviderID == providerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAssignmentRepo) IsAssigned(_ context.Context, providerID, locationID uuid.UUID) (bool, error) {
	_, ok := r.assigned[r.key(providerID, locationID)]
	return ok, nil
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

type fixture struct {
	svc         *Service
	rules       *memScheduleRepo
	assignments *memAssignmentRepo
	providerID  uuid.UUID
	locationID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rules := newMemScheduleRepo()
	assignments := newMemAssignmentRepo()
	f := &fixture{
		svc:         NewService(rules, assignments, logger.NewLogger(nil)),
		rules:       rules,
		assignments: assignments,
		providerID:  uuid.New(),
		locationID:  uuid.New(),
	}
	require.NoError(t, assignments.Assign(context.Background(), &model.ProviderCenterAssignment{
		ProviderID: f.providerID,
		LocationID: f.locationID,
	}))
	return f
}

func mondayInput() model.ScheduleRuleInput {
	return model.ScheduleRuleInput{
		Weekday:          1,
		IsAvailable:      boolPtr(true),
		StartTime:        "09:00",
		EndTime:          "17:00",
		SlotDurationMins: 30,
		BreakStart:       strPtr("12:00"),
		BreakEnd:         strPtr("13:00"),
	}
}

func putOneRule(t *testing.T, f *fixture, in model.ScheduleRuleInput) []*model.ScheduleRule {
	t.Helper()
	rules, err := f.svc.PutSchedule(context.Background(), f.providerID, f.locationID,
		&model.PutScheduleRequest{Rules: []model.ScheduleRuleInput{in}})
	require.NoError(t, err)
	return rules
}

func TestPutSchedule(t *testing.T) {
	f := newFixture(t)

	rules := putOneRule(t, f, mondayInput())
	require.Len(t, rules, 1)
	assert.Equal(t, 1, rules[0].Weekday)
	assert.True(t, rules[0].HasBreak())

	got, err := f.svc.GetRule(context.Background(), f.providerID, f.locationID, 1)
	require.NoError(t, err)
	assert.Equal(t, "09:00", got.StartTime)
}

func TestPutSchedule_Unassigned(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PutSchedule(context.Background(), f.providerID, uuid.New(),
		&model.PutScheduleRequest{Rules: []model.ScheduleRuleInput{mondayInput()}})
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))
}

func TestPutSchedule_Validation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name   string
		mutate func(*model.ScheduleRuleInput)
	}{
		{"implicit availability", func(in *model.ScheduleRuleInput) { in.IsAvailable = nil }},
		{"zero duration", func(in *model.ScheduleRuleInput) { in.SlotDurationMins = 0 }},
		{"inverted window", func(in *model.ScheduleRuleInput) { in.StartTime, in.EndTime = "17:00", "09:00" }},
		{"bad clock format", func(in *model.ScheduleRuleInput) { in.StartTime = "9am" }},
		{"half break", func(in *model.ScheduleRuleInput) { in.BreakEnd = nil }},
		{"inverted break", func(in *model.ScheduleRuleInput) { in.BreakStart, in.BreakEnd = strPtr("13:00"), strPtr("12:00") }},
		{"break outside window", func(in *model.ScheduleRuleInput) { in.BreakStart, in.BreakEnd = strPtr("08:00"), strPtr("10:00") }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := mondayInput()
			tc.mutate(&in)
			_, err := f.svc.PutSchedule(context.Background(), f.providerID, f.locationID,
				&model.PutScheduleRequest{Rules: []model.ScheduleRuleInput{in}})
			assert.Equal(t, apperrors.CodeInvalidScheduleRule, apperrors.CodeOf(err))
		})
	}
}

func TestPutSchedule_DuplicateWeekday(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PutSchedule(context.Background(), f.providerID, f.locationID,
		&model.PutScheduleRequest{Rules: []model.ScheduleRuleInput{mondayInput(), mondayInput()}})
	assert.Equal(t, apperrors.CodeInvalidScheduleRule, apperrors.CodeOf(err))
}

func TestPutSchedule_ZeroLengthBreakMeansNoBreak(t *testing.T) {
	f := newFixture(t)

	in := mondayInput()
	in.BreakStart, in.BreakEnd = strPtr("12:00"), strPtr("12:00")

	rules := putOneRule(t, f, in)
	assert.False(t, rules[0].HasBreak())
	assert.Nil(t, rules[0].BreakStart)
}

func TestPutSchedule_LegacySundayIndex(t *testing.T) {
	f := newFixture(t)

	in := mondayInput()
	in.Weekday = 7

	rules := putOneRule(t, f, in)
	assert.Equal(t, 0, rules[0].Weekday)

	got, err := f.svc.GetRule(context.Background(), f.providerID, f.locationID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Weekday)
}

func TestPutSchedule_UnavailableDayNeedsNoTimes(t *testing.T) {
	f := newFixture(t)

	rules := putOneRule(t, f, model.ScheduleRuleInput{Weekday: 2, IsAvailable: boolPtr(false)})
	require.Len(t, rules, 1)
	assert.False(t, rules[0].IsAvailable)
}

func TestGetRule_CachePurgedOnWrite(t *testing.T) {
	f := newFixture(t)
	putOneRule(t, f, mondayInput())

	ctx := context.Background()
	_, err := f.svc.GetRule(ctx, f.providerID, f.locationID, 1)
	require.NoError(t, err)
	_, err = f.svc.GetRule(ctx, f.providerID, f.locationID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, f.rules.reads, "second read must come from cache")

	in := mondayInput()
	in.EndTime = "18:00"
	putOneRule(t, f, in)

	got, err := f.svc.GetRule(ctx, f.providerID, f.locationID, 1)
	require.NoError(t, err)
	assert.Equal(t, "18:00", got.EndTime, "edit must be visible immediately")
}

func TestSetHomeVisit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	putOneRule(t, f, mondayInput())
	require.NoError(t, f.svc.SetHomeVisit(ctx, f.providerID, true))

	assigned, err := f.assignments.IsAssigned(ctx, f.providerID, model.HomeVisitLocationID)
	require.NoError(t, err)
	assert.True(t, assigned)

	// Home-visit rules behave like any other location's.
	in := mondayInput()
	_, err = f.svc.PutSchedule(ctx, f.providerID, model.HomeVisitLocationID,
		&model.PutScheduleRequest{Rules: []model.ScheduleRuleInput{in}})
	require.NoError(t, err)

	require.NoError(t, f.svc.SetHomeVisit(ctx, f.providerID, false))

	assigned, err = f.assignments.IsAssigned(ctx, f.providerID, model.HomeVisitLocationID)
	require.NoError(t, err)
	assert.False(t, assigned)

	_, err = f.svc.GetRule(ctx, f.providerID, model.HomeVisitLocationID, 1)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	// Real-center rules survive the toggle.
	_, err = f.svc.GetRule(ctx, f.providerID, f.locationID, 1)
	assert.NoError(t, err)
}

func TestAssignProvider_RejectsHomeVisitLocation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AssignProvider(context.Background(), f.providerID,
		&model.AssignProviderRequest{LocationID: model.HomeVisitLocationID})
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))
}

func TestUnassignProvider_DropsRules(t *testing.T) {
	f := newFixture(t)
	putOneRule(t, f, mondayInput())

	ctx := context.Background()
	require.NoError(t, f.svc.UnassignProvider(ctx, f.providerID, f.locationID))

	_, err := f.svc.GetRule(ctx, f.providerID, f.locationID, 1)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}
