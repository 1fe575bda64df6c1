package repository

import (
	"context"
	"errors"
	"strings"

	"matchwell/internal/domain"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// MySQL error numbers that mean "lost a race, safe to retry".
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// classify maps storage errors onto the engine taxonomy. Classified errors
// pass through untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &domain.Error{Kind: domain.KindNotFound, Msg: "not found", Err: err}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &domain.Error{Kind: domain.KindConflict, Msg: op + ": duplicate key", Err: err}
	case isRetryable(err):
		return &domain.Error{Kind: domain.KindConflict, Msg: op + ": concurrent update conflict", Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.Unavailable(op+": canceled", err)
	}
	return domain.Unavailable(op, err)
}

func isRetryable(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDeadlock || me.Number == mysqlLockWaitTimeout
	}
	// SQLite reports writer contention as SQLITE_BUSY / SQLITE_LOCKED.
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
