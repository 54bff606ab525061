package dto

// SetActiveRequest names the row to activate within a school.
type SetActiveRequest struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}
