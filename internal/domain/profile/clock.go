package profile

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseClock accepts 24-hour HH:MM or HH:MM:SS.
func ParseClock(s string) (h, m, sec int, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, 0, false
	}
	vals := make([]int, 3)
	limits := []int{23, 59, 59}
	for i, p := range parts {
		if len(p) != 2 {
			return 0, 0, 0, false
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, 0, 0, false
		}
		vals[i] = n
	}
	return vals[0], vals[1], vals[2], true
}

// ClockString renders a valid clock value as HH:MM:SS. Invalid input is
// returned trimmed and unchanged.
func ClockString(s string) string {
	h, m, sec, ok := ParseClock(s)
	if !ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}

// Grams converts a share of daily calories into grams of a macro,
// rounded to two decimals.
func Grams(calories int, percentage float64, kcalPerGram float64) float64 {
	if kcalPerGram <= 0 {
		return 0
	}
	g := float64(calories) * percentage / 100 / kcalPerGram
	return Round2(g)
}

func Round2(v float64) float64 {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	out, _ := strconv.ParseFloat(s, 64)
	return out
}

// Decimal renders a macro value the way snapshots store it.
func Decimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

const (
	KcalPerGramProtein = 4.0
	KcalPerGramCarbs   = 4.0
	KcalPerGramFat     = 9.0
)
