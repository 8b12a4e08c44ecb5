package models

// Domain models matching the database schema in db/migrations/0001_init.sql.
// Foreign keys are plain identifiers; nothing cascades.

import "github.com/google/uuid"

type User struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Username *string   `json:"username,omitempty" db:"username" validate:"omitempty,min=3,max=64"`
	Name     string    `json:"name" db:"name" validate:"required,max=255"`
	Email    string    `json:"email" db:"email" validate:"required,email"`
	IsActive bool      `json:"is_active" db:"is_active"`
}

func (u *User) Table() string { return "users" }
func (u *User) Key() uuid.UUID { return u.ID }
func (u *User) SetKey(id uuid.UUID) { u.ID = id }

type Credential struct {
	ID                  uuid.UUID  `json:"id" db:"id"`
	UserID              uuid.UUID  `json:"user_id" db:"user_id" validate:"required"`
	PasswordHash        string     `json:"-" db:"password_hash" validate:"required"`
	FailedAttempts      int        `json:"failed_attempts" db:"failed_attempts" validate:"gte=0"`
	LockedUntil         *Timestamp `json:"locked_until,omitempty" db:"locked_until"`
	RefreshToken        *string    `json:"-" db:"refresh_token"`
	RefreshTokenExpires *Timestamp `json:"refresh_token_expires,omitempty" db:"refresh_token_expires"`
}

func (c *Credential) Table() string { return "credentials" }
func (c *Credential) Key() uuid.UUID { return c.ID }
func (c *Credential) SetKey(id uuid.UUID) { c.ID = id }

type Project struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id" validate:"required"`
	Name        string    `json:"name" db:"name" validate:"required,max=255"`
	Description string    `json:"description" db:"description"`
	StartDate   Date      `json:"start_date" db:"start_date" validate:"required"`
	EndDate     Date      `json:"end_date" db:"end_date" validate:"required"`
	Status      Status    `json:"status" db:"status" validate:"required,oneof=pending in_progress done"`
	TotalBudget float64   `json:"total_budget" db:"total_budget" validate:"gte=0"`
}

func (p *Project) Table() string { return "projects" }
func (p *Project) Key() uuid.UUID { return p.ID }
func (p *Project) SetKey(id uuid.UUID) { p.ID = id }

type Task struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ProjectID   uuid.UUID `json:"project_id" db:"project_id" validate:"required"`
	Name        string    `json:"name" db:"name" validate:"required,max=255"`
	Description string    `json:"description" db:"description"`
	DueDate     Date      `json:"due_date" db:"due_date" validate:"required"`
	Status      Status    `json:"status" db:"status" validate:"required,oneof=pending in_progress done"`
}

func (t *Task) Table() string { return "tasks" }
func (t *Task) Key() uuid.UUID { return t.ID }
func (t *Task) SetKey(id uuid.UUID) { t.ID = id }

type Material struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ProjectID   uuid.UUID `json:"project_id" db:"project_id" validate:"required"`
	Name        string    `json:"name" db:"name" validate:"required,max=255"`
	QtyNeeded   int       `json:"qty_needed" db:"qty_needed" validate:"gte=0"`
	QtyAcquired int       `json:"qty_acquired" db:"qty_acquired" validate:"gte=0"`
	Unit        string    `json:"unit" db:"unit" validate:"required"`
	UnitCost    float64   `json:"unit_cost" db:"unit_cost" validate:"gte=0"`
	TotalCost   float64   `json:"total_cost" db:"total_cost" validate:"gte=0"`
}

func (m *Material) Table() string { return "materials" }
func (m *Material) Key() uuid.UUID { return m.ID }
func (m *Material) SetKey(id uuid.UUID) { m.ID = id }

type Budget struct {
	ID              uuid.UUID `json:"id" db:"id"`
	ProjectID       uuid.UUID `json:"project_id" db:"project_id" validate:"required"`
	Category        Category  `json:"category" db:"category" validate:"required,oneof=materials labor equipment subcontractor overhead"`
	AllocatedAmount float64   `json:"allocated_amount" db:"allocated_amount" validate:"gte=0"`
	SpentAmount     float64   `json:"spent_amount" db:"spent_amount" validate:"gte=0"`
}

func (b *Budget) Table() string { return "budgets" }
func (b *Budget) Key() uuid.UUID { return b.ID }
func (b *Budget) SetKey(id uuid.UUID) { b.ID = id }

type CostEntry struct {
	ID           uuid.UUID `json:"id" db:"id"`
	ProjectID    uuid.UUID `json:"project_id" db:"project_id" validate:"required"`
	Category     Category  `json:"category" db:"category" validate:"required"`
	Description  string    `json:"description" db:"description"`
	Amount       float64   `json:"amount" db:"amount"`
	DateIncurred Date      `json:"date_incurred" db:"date_incurred" validate:"required"`
	VendorName   string    `json:"vendor_name" db:"vendor_name" validate:"required"`
}

func (c *CostEntry) Table() string { return "cost_entries" }
func (c *CostEntry) Key() uuid.UUID { return c.ID }
func (c *CostEntry) SetKey(id uuid.UUID) { c.ID = id }

// ActivityLog is an audit record. Rows are only ever inserted.
type ActivityLog struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	ProjectID  *uuid.UUID `json:"project_id,omitempty" db:"project_id"`
	ActionType string     `json:"action_type" db:"action_type" validate:"required"`
	ActionDesc string     `json:"action_desc" db:"action_desc" validate:"max=255"`
	StatusCode int        `json:"status_code" db:"status_code"`
	Details    *string    `json:"details,omitempty" db:"details"`
	Timestamp  Timestamp  `json:"timestamp" db:"timestamp"`
}

func (a *ActivityLog) Table() string { return "activity_logs" }
func (a *ActivityLog) Key() uuid.UUID { return a.ID }
func (a *ActivityLog) SetKey(id uuid.UUID) { a.ID = id }
