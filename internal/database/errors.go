package database

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/3lprints/storefront/internal/apperrors"
)

const (
	mysqlDuplicateEntry = 1062
	mysqlBadField       = 1054
	mysqlNoSuchTable    = 1146
)

// driverDiagnostics extracts a driver code and hint without exposing driver types upstream.
func driverDiagnostics(err error) (code, hint string) {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if myErr.Number == mysqlDuplicateEntry {
			return apperrors.CodeUniqueViolation, myErr.Message
		}
		return "MYSQL_" + strconv.Itoa(int(myErr.Number)), ""
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23505" {
			return apperrors.CodeUniqueViolation, pqErr.Detail
		}
		return "PG_" + string(pqErr.Code), pqErr.Hint
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return apperrors.CodeUniqueViolation, liteErr.Error()
		}
		return "SQLITE_" + strconv.Itoa(int(liteErr.ExtendedCode)), ""
	}

	return "", ""
}

// isSchemaError reports whether err means a table or column does not exist.
func isSchemaError(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlBadField || myErr.Number == mysqlNoSuchTable
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42703" || pqErr.Code == "42P01"
	}

	// sqlite reports both as a generic SQLITE_ERROR; only the message tells them apart.
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		msg := liteErr.Error()
		return strings.Contains(msg, "no such table") || strings.Contains(msg, "no such column")
	}
	return false
}

// Normalize converts any storage error into an *apperrors.AppError of kind Database.
// Errors that are already AppErrors pass through unchanged.
func Normalize(label string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		e := apperrors.Database(label, err, apperrors.CodeNoData, "")
		e.Message = "no data returned"
		return e
	}
	code, hint := driverDiagnostics(err)
	if code == "" {
		code = "DB_ERROR"
	}
	return apperrors.Database(label, err, code, hint)
}

// IsUniqueViolation reports whether err (raw or normalised) is a unique-constraint failure.
func IsUniqueViolation(err error) bool {
	if apperrors.IsUniqueViolation(err) {
		return true
	}
	code, _ := driverDiagnostics(err)
	return code == apperrors.CodeUniqueViolation
}
