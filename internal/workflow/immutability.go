package workflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/admission-workflow-api/internal/models"
	appErrors "github.com/noah-isme/admission-workflow-api/pkg/errors"
)

// LockedApplicationFields may only be written while an application is a draft.
var LockedApplicationFields = []string{
	models.FieldStudentFirstName,
	models.FieldStudentMiddleName,
	models.FieldStudentLastName,
	models.FieldBirthDate,
	models.FieldNationality,
	models.FieldSchoolID,
	models.FieldAdmissionPeriodID,
	models.FieldLevelID,
}

var lockedFieldSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(LockedApplicationFields))
	for _, field := range LockedApplicationFields {
		set[field] = struct{}{}
	}
	return set
}()

// IsLockedField reports whether field is frozen after submission.
func IsLockedField(field string) bool {
	_, ok := lockedFieldSet[field]
	return ok
}

// AssertMutable rejects writes to locked fields of a non-draft application.
// Status and note fields are never locked.
func AssertMutable(status models.ApplicationStatus, changedFields []string) error {
	if status == models.ApplicationStatusDraft {
		return nil
	}
	var violations []string
	seen := make(map[string]struct{}, len(changedFields))
	for _, field := range changedFields {
		if _, dup := seen[field]; dup {
			continue
		}
		seen[field] = struct{}{}
		if IsLockedField(field) {
			violations = append(violations, field)
		}
	}
	if len(violations) == 0 {
		return nil
	}
	sort.Strings(violations)
	return appErrors.WithFields(appErrors.ErrImmutableField,
		fmt.Sprintf("application is %s; fields locked after submission: %s", status, strings.Join(violations, ", ")),
		violations...,
	)
}
