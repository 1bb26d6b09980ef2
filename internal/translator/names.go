package translator

import (
	"strconv"
	"strings"
)

// AllocateName returns the first "base_N" (N >= 1) that does not appear
// anywhere in existing.
func AllocateName(base, existing string) string {
	for i := 1; ; i++ {
		candidate := base + "_" + strconv.Itoa(i)
		if !strings.Contains(existing, candidate) {
			return candidate
		}
	}
}
