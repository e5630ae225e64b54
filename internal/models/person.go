package models

import "time"

type Role string

const (
	SuperAdmin Role = "SUPER_ADMIN"
	Admin      Role = "ADMIN"
	Employee   Role = "EMPLOYEE"
)

// Rank orders roles by privilege; unknown roles rank below Employee.
func (r Role) Rank() int {
	switch r {
	case SuperAdmin:
		return 3
	case Admin:
		return 2
	case Employee:
		return 1
	}
	return 0
}

func (r Role) Valid() bool { return r.Rank() > 0 }

type Person struct {
	ID         int64     `db:"id"`
	Name       string    `db:"name" validate:"required,max=200"`
	Email      *string   `db:"email" validate:"omitempty,email"`
	TelegramID *int64    `db:"telegram_id"`
	Role       Role      `db:"role" validate:"required,oneof=SUPER_ADMIN ADMIN EMPLOYEE"`
	IsActive   bool      `db:"is_active"`
	CreatedAt  time.Time `db:"created_at"`
}

// Assignment links a marker to the subject they evaluate.
type Assignment struct {
	ID        int64     `db:"id"`
	MarkerID  int64     `db:"marker_id" validate:"required,gt=0"`
	SubjectID int64     `db:"subject_id" validate:"required,gt=0,nefield=MarkerID"`
	IsActive  bool      `db:"is_active"`
	CreatedBy int64     `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
}

// Actor is the caller identity supplied by the external session layer.
type Actor struct {
	ID   int64
	Role Role
}
