package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/collider/internal/system"
	"github.com/scrypster/collider/pkg/types"
)

type fakeOrchestrator struct {
	status  system.Status
	report  types.CycleReport
	runErr  error
	emerged []types.EmergedCapsule
}

func (f *fakeOrchestrator) Status() system.Status { return f.status }

func (f *fakeOrchestrator) RunOnce(ctx context.Context) (types.CycleReport, error) {
	return f.report, f.runErr
}

func (f *fakeOrchestrator) LastEmerged() []types.EmergedCapsule { return f.emerged }

func TestStatusHandler(t *testing.T) {
	orch := &fakeOrchestrator{
		status: system.Status{
			Phase:  system.PhaseIdle,
			Totals: types.Totals{Runs: 3, Collisions: 7, Emerged: 4},
		},
	}

	rec := httptest.NewRecorder()
	StatusHandler(orch)(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got system.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, system.PhaseIdle, got.Phase)
	assert.Equal(t, 3, got.Totals.Runs)
}

func TestStatusHandlerRejectsPost(t *testing.T) {
	rec := httptest.NewRecorder()
	StatusHandler(&fakeOrchestrator{})(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTriggerHandler(t *testing.T) {
	orch := &fakeOrchestrator{
		report: types.CycleReport{SourceCapsules: 5, CollisionPairs: 2, EmergedCapsules: 1},
	}

	rec := httptest.NewRecorder()
	TriggerHandler(orch)(rec, httptest.NewRequest(http.MethodPost, "/api/collide", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got types.CycleReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.EmergedCapsules)
}

func TestTriggerHandlerFailedCycle(t *testing.T) {
	orch := &fakeOrchestrator{
		report: types.CycleReport{Failure: "hub unreachable"},
		runErr: errors.New("hub unreachable"),
	}

	rec := httptest.NewRecorder()
	TriggerHandler(orch)(rec, httptest.NewRequest(http.MethodPost, "/api/collide", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var got types.CycleReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "hub unreachable", got.Failure)
}

func TestTriggerHandlerRejectsGet(t *testing.T) {
	rec := httptest.NewRecorder()
	TriggerHandler(&fakeOrchestrator{})(rec, httptest.NewRequest(http.MethodGet, "/api/collide", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestEmergedHandler(t *testing.T) {
	orch := &fakeOrchestrator{
		emerged: []types.EmergedCapsule{
			{ID: "e1", Title: "fused", Type: types.CollisionCrossDomain},
		},
	}

	rec := httptest.NewRecorder()
	EmergedHandler(orch)(rec, httptest.NewRequest(http.MethodGet, "/api/emerged", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Total    int                    `json:"total"`
		Capsules []types.EmergedCapsule `json:"capsules"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Total)
	require.Len(t, got.Capsules, 1)
	assert.Equal(t, "e1", got.Capsules[0].ID)
}

func TestEmergedHandlerEmpty(t *testing.T) {
	rec := httptest.NewRecorder()
	EmergedHandler(&fakeOrchestrator{})(rec, httptest.NewRequest(http.MethodGet, "/api/emerged", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 0, got.Total)
}
