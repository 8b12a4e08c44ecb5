package models

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
)

// Patch types carry optional fields for PATCH requests. A nil field was not
// supplied and is left untouched by Apply.

type UserPatch struct {
	Username *string `json:"username,omitempty"`
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`

	// ClearUsername is set by an explicit "username": null.
	ClearUsername bool `json:"-"`
}

func (p *UserPatch) UnmarshalJSON(b []byte) error {
	type plain UserPatch
	if err := json.Unmarshal(b, (*plain)(p)); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if v, ok := raw["username"]; ok && bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		p.Username = nil
		p.ClearUsername = true
	}
	return nil
}

func (p UserPatch) Apply(u *User) {
	switch {
	case p.ClearUsername:
		u.Username = nil
	case p.Username != nil:
		u.Username = p.Username
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
}

type ProjectPatch struct {
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartDate   *Date      `json:"start_date,omitempty"`
	EndDate     *Date      `json:"end_date,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	TotalBudget *float64   `json:"total_budget,omitempty"`
}

func (p ProjectPatch) Apply(pr *Project) {
	if p.UserID != nil {
		pr.UserID = *p.UserID
	}
	if p.Name != nil {
		pr.Name = *p.Name
	}
	if p.Description != nil {
		pr.Description = *p.Description
	}
	if p.StartDate != nil {
		pr.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		pr.EndDate = *p.EndDate
	}
	if p.Status != nil {
		pr.Status = *p.Status
	}
	if p.TotalBudget != nil {
		pr.TotalBudget = *p.TotalBudget
	}
}

type TaskPatch struct {
	ProjectID   *uuid.UUID `json:"project_id,omitempty"`
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	DueDate     *Date      `json:"due_date,omitempty"`
	Status      *Status    `json:"status,omitempty"`
}

func (p TaskPatch) Apply(t *Task) {
	if p.ProjectID != nil {
		t.ProjectID = *p.ProjectID
	}
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
}

type MaterialPatch struct {
	ProjectID   *uuid.UUID `json:"project_id,omitempty"`
	Name        *string    `json:"name,omitempty"`
	QtyNeeded   *int       `json:"qty_needed,omitempty"`
	QtyAcquired *int       `json:"qty_acquired,omitempty"`
	Unit        *string    `json:"unit,omitempty"`
	UnitCost    *float64   `json:"unit_cost,omitempty"`
	TotalCost   *float64   `json:"total_cost,omitempty"`
}

func (p MaterialPatch) Apply(m *Material) {
	if p.ProjectID != nil {
		m.ProjectID = *p.ProjectID
	}
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.QtyNeeded != nil {
		m.QtyNeeded = *p.QtyNeeded
	}
	if p.QtyAcquired != nil {
		m.QtyAcquired = *p.QtyAcquired
	}
	if p.Unit != nil {
		m.Unit = *p.Unit
	}
	if p.UnitCost != nil {
		m.UnitCost = *p.UnitCost
	}
	if p.TotalCost != nil {
		m.TotalCost = *p.TotalCost
	}
}

type BudgetPatch struct {
	Category        *Category `json:"category,omitempty"`
	AllocatedAmount *float64  `json:"allocated_amount,omitempty"`
	SpentAmount     *float64  `json:"spent_amount,omitempty"`
}

func (p BudgetPatch) Apply(b *Budget) {
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.AllocatedAmount != nil {
		b.AllocatedAmount = *p.AllocatedAmount
	}
	if p.SpentAmount != nil {
		b.SpentAmount = *p.SpentAmount
	}
}

type CostEntryPatch struct {
	Category     *Category `json:"category,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Amount       *float64  `json:"amount,omitempty"`
	DateIncurred *Date     `json:"date_incurred,omitempty"`
	VendorName   *string   `json:"vendor_name,omitempty"`
}

func (p CostEntryPatch) Apply(c *CostEntry) {
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Amount != nil {
		c.Amount = *p.Amount
	}
	if p.DateIncurred != nil {
		c.DateIncurred = *p.DateIncurred
	}
	if p.VendorName != nil {
		c.VendorName = *p.VendorName
	}
}
