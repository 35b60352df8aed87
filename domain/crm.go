package domain

import "time"

// Profile is the read-only slice of a user record the gateway needs.
type Profile struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// Deal is a CRM pipeline entry, read-only at this layer.
type Deal struct {
	DealID    string    `json:"deal_id"`
	Title     string    `json:"title"`
	Stage     string    `json:"stage"`
	Value     float64   `json:"value"`
	ContactID string    `json:"contact_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StageTransition records a deal moving between pipeline stages.
type StageTransition struct {
	TransitionID string    `json:"transition_id"`
	DealID       string    `json:"deal_id"`
	FromStage    string    `json:"from_stage"`
	ToStage      string    `json:"to_stage"`
	ChangedAt    time.Time `json:"changed_at"`
}

// Task is a CRM to-do item.
type Task struct {
	TaskID    string     `json:"task_id"`
	Title     string     `json:"title"`
	Done      bool       `json:"done"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	ContactID string     `json:"contact_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Overdue reports whether the task is incomplete and past its due date.
func (t Task) Overdue(now time.Time) bool {
	return !t.Done && t.DueAt != nil && t.DueAt.Before(now)
}

// Contact is a CRM contact record.
type Contact struct {
	ContactID string    `json:"contact_id"`
	Name      string    `json:"name"`
	Company   string    `json:"company,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
