package valueobject

import (
	"fmt"
	"strings"

	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
)

// Location точка самовывоза: координаты и адрес.
type Location struct {
	Latitude  float64
	Longitude float64
	Address   string
}

func NewLocation(lat, lng float64, address string) (Location, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Location{}, apperror.New(apperror.ErrCodeValidation, "адрес обязателен")
	}
	if lat < -90 || lat > 90 {
		return Location{}, apperror.New(apperror.ErrCodeValidation, "широта должна быть в диапазоне [-90, 90]")
	}
	if lng < -180 || lng > 180 {
		return Location{}, apperror.New(apperror.ErrCodeValidation, "долгота должна быть в диапазоне [-180, 180]")
	}
	return Location{Latitude: lat, Longitude: lng, Address: address}, nil
}

// CoordinatesString строка "lat, lng", используется вместо адреса, если геокодер недоступен.
func CoordinatesString(lat, lng float64) string {
	return fmt.Sprintf("%.6f, %.6f", lat, lng)
}
