package service

import "errors"

// Ошибки бизнес-логики. Хэндлеры транслируют их в HTTP-статусы через errors.Is.
var (
	// ErrNotFound - инцидент или пользователь не найден
	ErrNotFound = errors.New("not found")
	// ErrForbidden - актор не имеет права на запрошенную операцию
	ErrForbidden = errors.New("forbidden")
	// ErrValidation - некорректные входные данные
	ErrValidation = errors.New("validation failed")
	// ErrConflict - инцидент не в том статусе, который требует переход
	ErrConflict = errors.New("incident is not in the expected status")
	// ErrDuplicateID - коллизия сгенерированного идентификатора
	ErrDuplicateID = errors.New("duplicate incident id")
	// ErrIDExhausted - не удалось подобрать уникальный идентификатор за отведенное число попыток
	ErrIDExhausted = errors.New("incident id space exhausted")
)
