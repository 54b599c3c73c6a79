package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"dw-importer/core/row"
)

// MySQL server error numbers this engine reacts to.
const (
	errDupEntry          = 1062
	errCheckViolated     = 3819
	errNoReferencedRow   = 1452
	errBadNull           = 1048
	errTruncatedWrong    = 1366
	errDataTruncated     = 1265
	errLockWaitTimeout   = 1205
	errDeadlock          = 1213
	errTooManyConns      = 1040
	errServerGone        = 2006
	errServerLost        = 2013
	errConnRefusedServer = 2002
	errConnHostError     = 2003
)

// Classify maps an error to its coarse cause. Unrecognized errors are
// CategoryUnknown, which is treated as permanent.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case errDupEntry, errCheckViolated, errNoReferencedRow, errBadNull:
			return CategoryConstraint
		case errTruncatedWrong, errDataTruncated:
			return CategoryType
		case errLockWaitTimeout, errDeadlock, errTooManyConns,
			errServerGone, errServerLost, errConnRefusedServer, errConnHostError:
			return CategoryConnectivity
		}
		return CategoryUnknown
	}

	if lostConnection(err) {
		return CategoryConnectivity
	}

	var coercion *row.CoercionError
	if errors.As(err, &coercion) {
		return CategoryType
	}
	var key *row.KeyError
	if errors.As(err, &key) {
		return CategoryNullKey
	}

	return CategoryUnknown
}

// Transient reports whether an error is worth retrying. Only
// connectivity-class failures (lost connections, lock waits, timeouts)
// are transient; constraint and type failures will fail identically on
// every attempt.
func Transient(err error) bool {
	return Classify(err) == CategoryConnectivity
}

// Unreachable reports whether an error means the warehouse itself
// cannot be reached. Lock waits, deadlocks and exhausted connection
// slots are contention on a live server: transient, but scoped to the
// statement that hit them. Only a lost or refused connection condemns
// the rest of the run.
func Unreachable(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case errServerGone, errServerLost, errConnRefusedServer, errConnHostError:
			return true
		}
		return false
	}
	return lostConnection(err)
}

func lostConnection(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, gorm.ErrInvalidDB)
}
