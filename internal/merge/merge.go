// Package merge combines user-provided and inferred field mappings under a
// strict "user wins" precedence policy with a replayable audit trail.
package merge

import (
	"fmt"
	"sort"

	"github.com/harvestfund/granary/internal/normalize"
)

// Merge overlays inferred values onto user values. For each inferred key the
// inferred value is copied only when the user has no value or an empty one
// (nil, "", zero-length slice or map; 0 and false are not empty). User-only
// keys pass through untouched. The returned steps record every decision in
// deterministic key order.
func Merge(user, inferred map[string]any) (map[string]any, []string) {
	merged := make(map[string]any, len(user)+len(inferred))
	for k, v := range user {
		merged[k] = v
	}

	keys := make([]string, 0, len(inferred))
	for k := range inferred {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	steps := make([]string, 0, len(keys))
	for _, k := range keys {
		userVal, present := user[k]
		if !present || normalize.IsEmptyValue(userVal) {
			merged[k] = inferred[k]
			steps = append(steps, fmt.Sprintf("filled %q from inference", k))
			continue
		}
		steps = append(steps, fmt.Sprintf("kept user value for %q", k))
	}

	return merged, steps
}
