package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCSV splits a comma-separated string and returns trimmed non-empty values.
// Returns nil for empty/whitespace-only input.
func ParseCSV(s string) []string {
	if s == "" {
		return nil
	}

	var result []string
	for _, v := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return nil
	}

	return result
}

// ParseFloats parses a comma-separated list of numbers, e.g. scale factors "1, 1.5, 2".
func ParseFloats(s string) ([]float64, error) {
	var out []float64
	for _, v := range ParseCSV(s) {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", v)
		}
		out = append(out, f)
	}
	return out, nil
}

// ParseInts parses a comma-separated list of integers, e.g. clbit indices "0,1".
func ParseInts(s string) ([]int, error) {
	var out []int
	for _, v := range ParseCSV(s) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", v)
		}
		out = append(out, n)
	}
	return out, nil
}
