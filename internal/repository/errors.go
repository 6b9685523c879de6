// Package repository implements the engine's persistence on MySQL.  Domain
// failures are reported as *model.Error values so handlers can map them to
// HTTP statuses; anything else is an infrastructure error and is returned
// unchanged.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a unique key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// notFound converts sql.ErrNoRows into a NotFound engine error.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.Errorf(model.KindNotFound, format, args...)
	}
	return err
}
