package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseDays parses the "<N>d" day-count shorthand used by --older-than
// flags (spec.md §6: "--older-than=<N>d").
func parseDays(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	n, ok := strings.CutSuffix(s, "d")
	if !ok {
		return 0, fmt.Errorf("invalid duration %q: expected <N>d", s)
	}
	days, err := strconv.Atoi(n)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return time.Duration(days) * 24 * time.Hour, nil
}
