package cache

import (
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleKeyMatchesPattern(t *testing.T) {
	key := RoleKey(42, "school_admin", 7)
	assert.Equal(t, "admissions:roles:42:7:school_admin", key)

	matched, err := path.Match(RolePattern(42), key)
	assert.NoError(t, err)
	assert.True(t, matched)

	matched, _ = path.Match(RolePattern(4), key)
	assert.False(t, matched)
}
