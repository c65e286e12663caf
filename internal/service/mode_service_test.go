package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-coverage-api/internal/dto"
	"github.com/noah-isme/sma-coverage-api/internal/models"
	appErrors "github.com/noah-isme/sma-coverage-api/pkg/errors"
)

type modeStoreStub struct {
	byID     map[string]*models.ModeConfig
	inserted *models.ModeConfig
	updated  *models.ModeConfig
	deleted  []string
}

func (s *modeStoreStub) List(ctx context.Context) ([]models.ModeConfig, error) {
	modes := make([]models.ModeConfig, 0, len(s.byID))
	for _, mode := range s.byID {
		modes = append(modes, *mode)
	}
	return modes, nil
}

func (s *modeStoreStub) FindByID(ctx context.Context, id string) (*models.ModeConfig, error) {
	if mode, ok := s.byID[id]; ok {
		return mode, nil
	}
	return nil, sql.ErrNoRows
}

func (s *modeStoreStub) Insert(ctx context.Context, mode *models.ModeConfig) error {
	if mode.ID == "" {
		mode.ID = "m-new"
	}
	s.inserted = mode
	return nil
}

func (s *modeStoreStub) Update(ctx context.Context, mode *models.ModeConfig) error {
	s.updated = mode
	return nil
}

func (s *modeStoreStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.byID[id]; !ok {
		return sql.ErrNoRows
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func newModeFixture() (*ModeService, *modeStoreStub) {
	store := &modeStoreStub{byID: map[string]*models.ModeConfig{}}
	return NewModeService(store, nil, nil), store
}

func validModeRequest() dto.SaveModeRequest {
	return dto.SaveModeRequest{
		Name:            "Exam Day",
		LinkedEventType: "EXAM",
		GoldenRules: []models.GoldenRule{
			{Type: models.GoldenRuleExcludeExternal},
			{Type: models.GoldenRuleMaxDailySubstitutions, Value: 2},
		},
		Ladder: []models.LadderRule{
			{Type: models.LadderRuleSameSubject, Weight: 20},
			{Type: models.LadderRuleFreePeriod, Weight: 10, Condition: &models.RuleCondition{MinGrade: ptr(10), MaxGrade: ptr(12)}},
		},
	}
}

func TestModeServiceCreateDefaultsEnabled(t *testing.T) {
	svc, store := newModeFixture()

	mode, err := svc.Create(context.Background(), validModeRequest())
	require.NoError(t, err)

	assert.True(t, mode.Enabled, "new modes are enabled unless told otherwise")
	assert.Equal(t, models.EventTypeExam, mode.LinkedEventType)
	require.NotNil(t, store.inserted)
	assert.Equal(t, "m-new", store.inserted.ID)
}

func TestModeServiceCreateHonoursEnabledFlag(t *testing.T) {
	svc, _ := newModeFixture()
	req := validModeRequest()
	req.Enabled = ptr(false)

	mode, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, mode.Enabled)
}

func TestModeServiceCreateRejectsUnknownRuleTypes(t *testing.T) {
	svc, _ := newModeFixture()
	req := validModeRequest()
	req.GoldenRules = append(req.GoldenRules, models.GoldenRule{Type: "ban_mondays"})
	req.Ladder = append(req.Ladder, models.LadderRule{Type: "vibes", Weight: 5})

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	assert.Len(t, appErrors.Fields(err), 2)
}

func TestModeServiceCreateRejectsBadRuleValues(t *testing.T) {
	svc, _ := newModeFixture()
	req := validModeRequest()
	req.GoldenRules = []models.GoldenRule{{Type: models.GoldenRuleMaxDailySubstitutions}}
	req.Ladder = []models.LadderRule{
		{Type: models.LadderRuleFreePeriod, Weight: 0},
		{Type: models.LadderRuleSameSubject, Weight: 5, Condition: &models.RuleCondition{MinGrade: ptr(12), MaxGrade: ptr(10)}},
		{Type: models.LadderRuleClassEducator, Weight: 5, Condition: &models.RuleCondition{EventTypes: []models.EventType{"SNOW_DAY"}}},
	}

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)

	fields := appErrors.Fields(err)
	names := make([]string, 0, len(fields))
	for _, failure := range fields {
		names = append(names, failure.Field)
	}
	assert.Contains(t, names, "golden_rules[0].value")
	assert.Contains(t, names, "ladder[0].weight")
	assert.Contains(t, names, "ladder[1].condition")
	assert.Contains(t, names, "ladder[2].condition.event_types")
}

func TestModeServiceCreateRejectsUnknownEventType(t *testing.T) {
	svc, _ := newModeFixture()
	req := validModeRequest()
	req.LinkedEventType = "SNOW_DAY"

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestModeServiceUpdateReplacesRules(t *testing.T) {
	svc, store := newModeFixture()
	store.byID["m-1"] = &models.ModeConfig{
		ID:              "m-1",
		Name:            "Old",
		LinkedEventType: models.EventTypeTrip,
		Enabled:         true,
	}

	req := validModeRequest()
	req.Enabled = ptr(false)
	mode, err := svc.Update(context.Background(), "m-1", req)
	require.NoError(t, err)

	assert.Equal(t, "Exam Day", mode.Name)
	assert.False(t, mode.Enabled)
	require.NotNil(t, store.updated)
	assert.Len(t, store.updated.Ladder, 2)
}

func TestModeServiceUpdateMissing(t *testing.T) {
	svc, _ := newModeFixture()

	_, err := svc.Update(context.Background(), "m-404", validModeRequest())
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestModeServiceDeleteMissing(t *testing.T) {
	svc, _ := newModeFixture()

	err := svc.Delete(context.Background(), "m-404")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestModeServiceDelete(t *testing.T) {
	svc, store := newModeFixture()
	store.byID["m-1"] = &models.ModeConfig{ID: "m-1", Name: "Exam Day", LinkedEventType: models.EventTypeExam}

	require.NoError(t, svc.Delete(context.Background(), "m-1"))
	assert.Equal(t, []string{"m-1"}, store.deleted)
}
