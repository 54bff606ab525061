package models

import "time"

// Role names a school-scoped capability granted to a user.
type Role string

const (
	RoleParent         Role = "parent"
	RoleSchoolAdmin    Role = "school_admin"
	RoleAdmissionAdmin Role = "admission_admin"
	RoleFinanceAdmin   Role = "finance_admin"
)

// User is the minimal projection of a user needed to notify parents.
type User struct {
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
