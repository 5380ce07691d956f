package trace

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/remedyops/k8s-sim-trainer/pkg/models"
)

// Diff compares two documents and returns one FieldChange per leaf value
// that was added, removed, or modified. Paths read like
// "events[0] -> applied_objs[0] -> spec -> replicas".
func Diff(before, after Document) []models.FieldChange {
	var changes []models.FieldChange
	diffValue(nil, map[string]any(before), map[string]any(after), &changes)
	return changes
}

func diffValue(path []string, before, after any, out *[]models.FieldChange) {
	beforeMap, beforeIsMap := asMap(before)
	afterMap, afterIsMap := asMap(after)
	if beforeIsMap && afterIsMap {
		keys := map[string]struct{}{}
		for k := range beforeMap {
			keys[k] = struct{}{}
		}
		for k := range afterMap {
			keys[k] = struct{}{}
		}
		sorted := make([]string, 0, len(keys))
		for k := range keys {
			sorted = append(sorted, k)
		}
		sort.Strings(sorted)
		for _, k := range sorted {
			b, inBefore := beforeMap[k]
			a, inAfter := afterMap[k]
			switch {
			case !inBefore:
				record(append(path, k), nil, a, out)
			case !inAfter:
				record(append(path, k), b, nil, out)
			default:
				diffValue(append(path, k), b, a, out)
			}
		}
		return
	}

	beforeList, beforeIsList := before.([]any)
	afterList, afterIsList := after.([]any)
	if beforeIsList && afterIsList {
		n := len(beforeList)
		if len(afterList) > n {
			n = len(afterList)
		}
		for i := 0; i < n; i++ {
			elem := append(path, fmt.Sprintf("[%d]", i))
			switch {
			case i >= len(beforeList):
				record(elem, nil, afterList[i], out)
			case i >= len(afterList):
				record(elem, beforeList[i], nil, out)
			default:
				diffValue(elem, beforeList[i], afterList[i], out)
			}
		}
		return
	}

	// Kind changed (map vs list vs scalar): report the whole subtree.
	if beforeIsMap || afterIsMap || beforeIsList || afterIsList {
		record(path, before, after, out)
		return
	}

	if !equalValues(before, after) {
		record(path, before, after, out)
	}
}

func record(path []string, before, after any, out *[]models.FieldChange) {
	*out = append(*out, models.FieldChange{
		Path:   formatPath(path),
		Before: before,
		After:  after,
	})
}

func formatPath(path []string) string {
	if len(path) == 0 {
		return "root"
	}
	return strings.Join(path, " -> ")
}

// equalValues compares leaves, treating numerically equal values of
// different decoded widths (msgpack int64 vs JSON float64) as equal.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	if ab, ok := a.([]byte); ok {
		bb, ok := b.([]byte)
		return ok && bytes.Equal(ab, bb)
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		i, ok := asInt(v)
		return float64(i), ok
	}
}
