package storages

import "errors"

var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate нарушено ограничение уникальности
	ErrDuplicate = errors.New("record already exists")
)
