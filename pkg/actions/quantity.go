package actions

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Quantity grammar: CPU is `{number}` (cores) or `{number}m` (millicores);
// memory takes binary suffixes Ki/Mi/Gi/Ti (powers of 1024), decimal
// K/M/G/T (powers of 1000), B, or no suffix for raw bytes. Values are
// rounded to whole millicores/bytes on parse and re-serialized preferring
// the unit the pre-existing value was written in.

var (
	cpuPattern = regexp.MustCompile(`^([0-9]*\.?[0-9]+)(m?)$`)
	memPattern = regexp.MustCompile(`^([0-9]*\.?[0-9]+)([A-Za-z]*)$`)
)

var memFactors = map[string]int64{
	"":   1,
	"B":  1,
	"K":  1000,
	"M":  1000 * 1000,
	"G":  1000 * 1000 * 1000,
	"T":  1000 * 1000 * 1000 * 1000,
	"Ki": 1024,
	"Mi": 1024 * 1024,
	"Gi": 1024 * 1024 * 1024,
	"Ti": 1024 * 1024 * 1024 * 1024,
}

// ParseCPU converts a CPU quantity to whole millicores, returning the unit
// it was written in ("m" or "" for cores). Empty input counts as zero
// millicores, which is how an unset request reads.
func ParseCPU(q string) (int64, string, error) {
	if q == "" {
		return 0, "m", nil
	}
	m := cpuPattern.FindStringSubmatch(strings.TrimSpace(q))
	if m == nil {
		return 0, "", fmt.Errorf("unsupported CPU quantity %q", q)
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", fmt.Errorf("unsupported CPU quantity %q: %w", q, err)
	}
	if m[2] == "m" {
		return int64(math.Round(value)), "m", nil
	}
	return int64(math.Round(value * 1000)), "", nil
}

// FormatCPU renders millicores in the preferred unit. The cores form drops
// trailing zeros ("1", "1.5", "0.75").
func FormatCPU(millicores int64, unit string) string {
	if unit == "m" {
		return strconv.FormatInt(millicores, 10) + "m"
	}
	if millicores%1000 == 0 {
		return strconv.FormatInt(millicores/1000, 10)
	}
	s := strconv.FormatFloat(float64(millicores)/1000.0, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// ParseMemory converts a memory quantity to whole bytes, returning the unit
// it was written in. Empty input counts as zero bytes with a Mi preference.
func ParseMemory(q string) (int64, string, error) {
	if q == "" {
		return 0, "Mi", nil
	}
	m := memPattern.FindStringSubmatch(strings.TrimSpace(q))
	if m == nil {
		return 0, "", fmt.Errorf("unsupported memory quantity %q", q)
	}
	unit := m[2]
	if unit == "" {
		unit = "B"
	}
	factor, ok := memFactors[unit]
	if !ok {
		return 0, "", fmt.Errorf("unsupported memory unit %q", m[2])
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", fmt.Errorf("unsupported memory quantity %q: %w", q, err)
	}
	return int64(math.Round(value * float64(factor))), unit, nil
}

// FormatMemory renders bytes in the preferred unit when they divide evenly,
// otherwise falls back to Mi (fractional as a last resort).
func FormatMemory(bytes int64, unit string) string {
	factor, ok := memFactors[unit]
	if !ok {
		unit, factor = "Mi", memFactors["Mi"]
	}
	if bytes%factor == 0 {
		return strconv.FormatInt(bytes/factor, 10) + unit
	}
	if unit != "Mi" {
		return FormatMemory(bytes, "Mi")
	}
	return fmt.Sprintf("%.2fMi", float64(bytes)/float64(factor))
}
