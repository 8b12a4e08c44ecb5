package api_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/built/internal/config"
	"github.com/garnizeh/built/internal/jobs"
)

func TestListProjects_Pagination(t *testing.T) {
	e := newEnv(t, nil)
	owner := e.createUser(t, "Ana", "ana@example.com")
	for i := range 7 {
		e.createProject(t, owner, fmt.Sprintf("P%d", i), 100)
	}

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"default limit", "", 5},
		{"second page", "&offset=5", 2},
		{"offset beyond", "&offset=10", 0},
		{"zero limit", "&limit=0", 0},
		{"max limit", "&limit=100", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := e.do(t, http.MethodGet, prefix+"/project/?user_id="+owner+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "collection", out.Response)
			items := decodeData[[]idOnly](t, out)
			assert.NotNil(t, items)
			assert.Len(t, items, tt.want)
		})
	}
}

func TestListProjects_BadQuery(t *testing.T) {
	e := newEnv(t, nil)
	owner := e.createUser(t, "Ana", "ana@example.com")

	rec, out := e.do(t, http.MethodGet, prefix+"/project/?user_id="+owner+"&limit=101", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Limit must not exceed 100 per transaction", out.Errors[0].Detail)

	rec, out = e.do(t, http.MethodGet, prefix+"/project/?user_id="+owner+"&limit=abc", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "query.limit: Input should be a valid integer", out.Errors[0].Detail)

	rec, out = e.do(t, http.MethodGet, prefix+"/project/", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "query.user_id: Field required", out.Errors[0].Detail)
}

func TestCreateProject_UnknownOwner(t *testing.T) {
	e := newEnv(t, nil)

	rec, _ := e.do(t, http.MethodPost, prefix+"/project/", map[string]any{
		"user_id":    uuid.NewString(),
		"name":       "Orphan",
		"start_date": "2024-01-01",
		"end_date":   "2024-02-01",
		"status":     "pending",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProject_IncludesOwner(t *testing.T) {
	e := newEnv(t, nil)
	owner := e.createUser(t, "Ana", "ana@example.com")
	id := e.createProject(t, owner, "House", 1000)

	rec, out := e.do(t, http.MethodGet, prefix+"/project/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeData[struct {
		Name  string `json:"name"`
		Owner struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"owner"`
	}](t, out)
	assert.Equal(t, "House", got.Name)
	assert.Equal(t, owner, got.Owner.ID)
	assert.Equal(t, "ana@example.com", got.Owner.Email)

	rec, _ = e.do(t, http.MethodPatch, prefix+"/project/"+id, map[string]any{"status": "started"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, out = e.do(t, http.MethodPatch, prefix+"/project/"+id, map[string]any{"status": "in_progress"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(out.Data), `"in_progress"`)
}

func TestProjectFinancials(t *testing.T) {
	e := newEnv(t, nil)
	owner := e.createUser(t, "Ana", "ana@example.com")
	id := e.createProject(t, owner, "House", 1000)

	rec, out := e.do(t, http.MethodPost, prefix+"/project/"+id+"/costs", map[string]any{
		"category":    "labor",
		"description": "Framing crew",
		"amount":      250.5,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cost := decodeData[struct {
		VendorName string `json:"vendor_name"`
		ProjectID  string `json:"project_id"`
	}](t, out)
	assert.Equal(t, "Unknown", cost.VendorName)
	assert.Equal(t, id, cost.ProjectID)

	rec, _ = e.do(t, http.MethodPost, prefix+"/project/"+id+"/costs", map[string]any{
		"category":    "materials",
		"description": "Lumber",
		"amount":      100,
		"vendor_name": "Yard",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out = e.do(t, http.MethodGet, prefix+"/project/"+id+"/financials", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decodeData[struct {
		ProjectName     string  `json:"project_name"`
		TotalBudget     float64 `json:"total_budget"`
		TotalActual     float64 `json:"total_actual"`
		BudgetRemaining float64 `json:"budget_remaining"`
		CostBreakdown   []struct {
			Vendor string `json:"vendor"`
		} `json:"cost_breakdown"`
	}](t, out)
	assert.Equal(t, "House", sum.ProjectName)
	assert.InDelta(t, 1000, sum.TotalBudget, 0.001)
	assert.InDelta(t, 350.5, sum.TotalActual, 0.001)
	assert.InDelta(t, 649.5, sum.BudgetRemaining, 0.001)
	require.Len(t, sum.CostBreakdown, 2)
	assert.Equal(t, "Yard", sum.CostBreakdown[1].Vendor)

	rec, _ = e.do(t, http.MethodGet, prefix+"/project/"+uuid.NewString()+"/financials", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteProject_SchedulesSweep(t *testing.T) {
	e := newEnv(t, nil)
	owner := e.createUser(t, "Ana", "ana@example.com")
	id := e.createProject(t, owner, "House", 1000)

	rec, out := e.do(t, http.MethodDelete, prefix+"/project/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out.Result)
	assert.Equal(t, []string{jobs.TypeSweepOrphans}, e.jobs.types())

	rec, _ = e.do(t, http.MethodDelete, prefix+"/project/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, e.jobs.types(), 1)
}

func TestDeleteProject_SweepDisabled(t *testing.T) {
	e := newEnv(t, func(c *config.Config) { c.Projects.SweepOrphans = false })
	owner := e.createUser(t, "Ana", "ana@example.com")
	id := e.createProject(t, owner, "House", 1000)

	rec, _ := e.do(t, http.MethodDelete, prefix+"/project/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, e.jobs.types())
}
