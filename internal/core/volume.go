// Package core provides volume parsing and formatting utilities.
//
// This file contains functions for turning user input into millilitre
// amounts and preset values.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseVolume converts a decimal string to millilitres.
//
// It accepts both dot (12.5) and comma (12,5) decimal separators.
// Returns ErrInvalidAmount for invalid formats, signs, zero or
// non-finite values.
//
// Examples:
//
//	ParseVolume("250")   -> 250, nil
//	ParseVolume("12,5")  -> 12.5, nil
//	ParseVolume("-1")    -> 0, ErrInvalidAmount
func ParseVolume(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if err := ValidateAmount(v); err != nil {
		return 0, err
	}
	return v, nil
}

// ParsePreset converts a string to a preset value. Presets are whole
// millilitres, so fractional input is rejected rather than truncated.
func ParsePreset(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidPreset
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, ErrInvalidPreset
	}
	return v, nil
}

// FormatVolume renders an amount without a trailing ".0" for whole values.
func FormatVolume(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
