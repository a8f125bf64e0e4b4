package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested row does not exist (or is expired).
var ErrNotFound = gorm.ErrRecordNotFound

// isDuplicate detects unique-constraint violations across drivers that may
// not map to gorm.ErrDuplicatedKey. glebarez/sqlite often returns plain-text
// errors for UNIQUE violations.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}
