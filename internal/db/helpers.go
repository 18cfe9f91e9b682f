package db

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the repositories translate.
const (
	ErrDuplicateEntry  uint16 = 1062
	ErrRowIsReferenced uint16 = 1451
	ErrNoReferencedRow uint16 = 1452
)

// NullIfEmpty helps store optional strings without wiping existing data.
func NullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// NullString maps an optional pointer to a driver value.
func NullString(s *string) any {
	if s == nil {
		return nil
	}
	return NullIfEmpty(*s)
}

// NullInt64 maps an optional pointer to a driver value.
func NullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// StringPtr converts a scanned NullString to an optional value.
func StringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// MySQLErrorNumber returns the server error number, or 0 for non-MySQL errors.
func MySQLErrorNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func IsDuplicate(err error) bool {
	return MySQLErrorNumber(err) == ErrDuplicateEntry
}

// Placeholders returns "?,?,?" for n arguments.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// Int64Args converts ids to driver arguments.
func Int64Args(ids []int64) []any {
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}
