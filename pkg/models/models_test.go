package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/garnizeh/built/pkg/models"
)

func TestDate_JSONAndSQL(t *testing.T) {
	d := models.NewDate(2024, time.March, 9)

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-03-09"` {
		t.Fatalf("unexpected json %s", b)
	}

	var back models.Date
	if err := json.Unmarshal([]byte(`"2024-03-09"`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("expected %v got %v", d, back)
	}

	if err := json.Unmarshal([]byte(`"09/03/2024"`), &back); err == nil {
		t.Fatalf("expected error for non ISO date")
	}

	v, err := d.Value()
	if err != nil || v != "2024-03-09" {
		t.Fatalf("unexpected Value %v %v", v, err)
	}

	var scanned models.Date
	if err := scanned.Scan([]byte("2024-03-09")); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if scanned.String() != "2024-03-09" {
		t.Fatalf("unexpected scanned %s", scanned)
	}
	if err := scanned.Scan(42); err == nil {
		t.Fatalf("expected error scanning int into Date")
	}
}

func TestTimestamp_SQLRoundTrip(t *testing.T) {
	ts := models.NewTimestamp(time.Date(2025, 1, 2, 3, 4, 5, 6_000_000, time.UTC))

	v, err := ts.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	ms, ok := v.(int64)
	if !ok {
		t.Fatalf("expected int64 storage, got %T", v)
	}

	var back models.Timestamp
	if err := back.Scan(ms); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !back.Equal(ts.Time) {
		t.Fatalf("expected %v got %v", ts, back)
	}
}

func TestPatchApply_OnlyTouchesSuppliedFields(t *testing.T) {
	p := models.Project{
		Name:        "Tower",
		Description: "42 floors",
		Status:      models.StatusPending,
		TotalBudget: 1000,
	}

	name := "Tower B"
	models.ProjectPatch{Name: &name}.Apply(&p)

	if p.Name != "Tower B" {
		t.Fatalf("expected name overwritten, got %q", p.Name)
	}
	if p.Description != "42 floors" || p.Status != models.StatusPending || p.TotalBudget != 1000 {
		t.Fatalf("unsupplied fields changed: %+v", p)
	}

	var patch models.MaterialPatch
	if err := json.Unmarshal([]byte(`{"qty_acquired": 0}`), &patch); err != nil {
		t.Fatalf("unmarshal patch: %v", err)
	}
	m := models.Material{QtyNeeded: 5, QtyAcquired: 3, Unit: "pcs"}
	patch.Apply(&m)
	if m.QtyAcquired != 0 || m.QtyNeeded != 5 || m.Unit != "pcs" {
		t.Fatalf("explicit zero must be applied and others kept: %+v", m)
	}
}

func TestUserPatch_ExplicitNullClearsUsername(t *testing.T) {
	name := "ana"
	tests := []struct {
		body string
		want *string
	}{
		{`{"username": null}`, nil},
		{`{"name": "Ana"}`, &name},
		{`{"username": "bo"}`, strPtr("bo")},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var p models.UserPatch
			if err := json.Unmarshal([]byte(tt.body), &p); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}

			u := &models.User{Username: &name, Name: "Ana", Email: "ana@example.com"}
			p.Apply(u)
			switch {
			case tt.want == nil && u.Username != nil:
				t.Fatalf("expected username cleared, got %q", *u.Username)
			case tt.want != nil && (u.Username == nil || *u.Username != *tt.want):
				t.Fatalf("expected username %q, got %v", *tt.want, u.Username)
			}
		})
	}
}

func strPtr(s string) *string { return &s }
