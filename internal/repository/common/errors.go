package common

import (
	"errors"

	"github.com/lib/pq"
)

// Базовые ошибки репозиториев, конкретные ошибки оборачивают их.
var (
	ErrNotFound      = errors.New("запись не найдена")
	ErrAlreadyExists = errors.New("запись уже существует")
)

const uniqueViolation = "23505"

// IsUniqueViolation нарушение уникального индекса Postgres.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
