package valueobject

import (
	"math"
	"regexp"
	"strconv"
)

var quantityMagnitude = regexp.MustCompile(`(\d+(\.\d+)?)`)

// MealsPerUnit сколько человек кормит одна единица количества (0.5 кг на порцию).
const MealsPerUnit = 2

// QuantityMagnitude извлекает первое число из свободного текста ("10 kg" -> 10).
// Возвращает 0, если числа нет.
func QuantityMagnitude(quantity string) float64 {
	match := quantityMagnitude.FindString(quantity)
	if match == "" {
		return 0
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return value
}

// EstimatePeopleFed оценка числа накормленных по суммарному количеству.
func EstimatePeopleFed(weight float64) int {
	return int(math.Round(weight * MealsPerUnit))
}
