package flow

import (
	"fmt"
	"strconv"
	"strings"

	"coinkeeper/internal/core"
)

// Selection payload prefixes. Payloads are small enough for any chat
// platform's button data limit.
const (
	prefixCategory = "cat"
	prefixDay      = "day"
)

// CategoryPayload encodes a category button. The kind travels with the id so
// a stale button from another flow cannot resolve in the wrong table.
func CategoryPayload(c core.Category) string {
	return fmt.Sprintf("%s:%s:%d", prefixCategory, c.Kind, c.ID)
}

func DayPayload(day int) string {
	return fmt.Sprintf("%s:%d", prefixDay, day)
}

func parseCategoryPayload(p string) (core.Kind, int64, bool) {
	parts := strings.Split(p, ":")
	if len(parts) != 3 || parts[0] != prefixCategory {
		return "", 0, false
	}
	kind, err := core.ParseKind(parts[1])
	if err != nil {
		return "", 0, false
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return kind, id, true
}

func parseDayPayload(p string) (int, bool) {
	rest, ok := strings.CutPrefix(p, prefixDay+":")
	if !ok {
		return 0, false
	}
	day, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return day, true
}
