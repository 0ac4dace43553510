package pricing

import (
	"strconv"
	"strings"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

var operators = []string{"=", "!=", ">", ">=", "<", "<="}

func validOperator(op string) bool {
	for _, o := range operators {
		if o == op {
			return true
		}
	}
	return false
}

// Matches evaluates "field op value" against a snapshot. Both sides are
// compared as numbers when both parse as numbers, otherwise as strings. A
// field the snapshot lacks never matches.
func Matches(snap domain.Snapshot, field, op, value string) bool {
	actual, ok := snap.Lookup(field)
	if !ok {
		return false
	}

	a, errA := strconv.ParseFloat(actual, 64)
	b, errB := strconv.ParseFloat(strings.TrimSpace(value), 64)
	var c int
	if errA == nil && errB == nil {
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		}
	} else {
		c = strings.Compare(actual, value)
	}

	switch op {
	case "=":
		return c == 0
	case "!=":
		return c != 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	}
	return false
}
