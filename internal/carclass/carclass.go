// Package carclass maps free-text car class labels onto the fixed set of
// classes the grid is sorted by.
package carclass

import (
	"strings"
)

const (
	GTP    = "GTP"
	GT3Pro = "GT3 PRO"
	GT3Am  = "GT3 AM"
	GT3    = "GT3"
)

// UnknownOrder is the sort position of any class outside the priority table.
const UnknownOrder = 99

var priority = map[string]int{
	GTP:    0,
	GT3Pro: 1,
	GT3Am:  2,
	GT3:    3,
}

// Normalize is total: anything it does not recognise becomes GT3.
func Normalize(raw string) string {
	v := strings.ToUpper(strings.TrimSpace(raw))

	if strings.Contains(v, "GTP") || strings.Contains(v, "LMDH") {
		return GTP
	}

	if strings.Contains(v, "GT3") {
		hasAm := strings.Contains(v, "AM")
		hasPro := strings.Contains(v, "PRO")
		switch {
		case hasAm && !hasPro:
			return GT3Am
		case hasPro && !hasAm:
			return GT3Pro
		}
		return GT3
	}

	return GT3
}

// NormalizeAny handles cells that did not arrive as text.
func NormalizeAny(v any) string {
	s, ok := v.(string)
	if !ok {
		return GT3
	}
	return Normalize(s)
}

// Order returns the sort position of an already normalized class.
func Order(class string) int {
	if o, ok := priority[strings.ToUpper(class)]; ok {
		return o
	}
	return UnknownOrder
}

func Less(a, b string) bool {
	return Order(a) < Order(b)
}

// OrderCase is the SQL equivalent of Order for the given column expression.
func OrderCase(column string) string {
	return "CASE UPPER(COALESCE(" + column + ",''))" +
		" WHEN '" + GTP + "' THEN 0" +
		" WHEN '" + GT3Pro + "' THEN 1" +
		" WHEN '" + GT3Am + "' THEN 2" +
		" WHEN '" + GT3 + "' THEN 3" +
		" ELSE 99 END"
}
