package ident

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"
)

// GenerateIncidentID возвращает человекочитаемый идентификатор инцидента
// вида INC-2026-0042. Уникальность не гарантируется - вызывающая сторона
// обязана проверить коллизию по хранилищу и повторить генерацию.
func GenerateIncidentID() string {
	year := time.Now().Year()
	return fmt.Sprintf("INC-%d-%04d", year, rand.Intn(10000))
}

// GenerateToken возвращает случайный API-токен пользователя в base36
func GenerateToken() string {
	token := ""
	for len(token) < 26 {
		token += strconv.FormatUint(rand.Uint64(), 36)
	}
	return "USER-" + token[:26]
}
