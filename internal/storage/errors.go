package storage

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrProductExists    = errors.New("product already exists")
	ErrCartLineNotFound = errors.New("item not found in cart")
	ErrOrderNotFound    = errors.New("order not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category with this slug already exists")
	// ErrConflict - ошибка конкуренции на уровне БД; транзакцию можно повторить целиком
	ErrConflict = errors.New("storage conflict, retry the transaction")
)

// коды postgres, при которых транзакция откатывается без вины входных данных
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03" // lock_timeout и NOWAIT
	codeQueryCanceled        = "57014" // statement_timeout
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
)

// IsConflict сообщает, является ли ошибка временным конфликтом блокировок/сериализации.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConflict) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeQueryCanceled:
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeForeignKeyViolation
}
