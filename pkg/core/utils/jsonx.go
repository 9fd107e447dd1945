// Package utils holds small shared helpers: tolerant JSON decoding for
// provider payloads and markdown utilities for rendered reports.
package utils

import (
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// RepairJSON attempts to fix common defects in near-JSON payloads:
// single-quoted or unquoted keys, trailing commas, unclosed containers,
// comments, stray markdown fences.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("json repair: %w", err)
	}
	return repaired, nil
}

// MustRepairJSON is RepairJSON with an empty object fallback, for paths
// that need a guaranteed JSON string.
func MustRepairJSON(malformed string) string {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "{}"
	}
	return repaired
}

// ParseHJSON converts Hjson (comments, unquoted keys and strings, optional
// commas) to standard JSON.
func ParseHJSON(input string) (string, error) {
	var value interface{}
	if err := hjson.Unmarshal([]byte(input), &value); err != nil {
		return "", fmt.Errorf("hjson parse: %w", err)
	}
	out, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("hjson remarshal: %w", err)
	}
	return string(out), nil
}

// ParseHJSONToStruct decodes Hjson directly into a Go value. Prefer this
// when the schema is known.
func ParseHJSONToStruct(input string, target interface{}) error {
	if err := hjson.Unmarshal([]byte(input), target); err != nil {
		return fmt.Errorf("hjson unmarshal: %w", err)
	}
	return nil
}

// SmartParse decodes a payload of uncertain cleanliness into target,
// trying progressively more forgiving strategies:
//
//  1. standard JSON
//  2. repaired JSON
//  3. Hjson
//
// It returns the form that finally decoded, so callers can cache or log
// the normalized payload.
func SmartParse(input string, target interface{}) (string, error) {
	if err := json.Unmarshal([]byte(input), target); err == nil {
		return input, nil
	}

	if repaired, err := RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), target); err == nil {
			return repaired, nil
		}
	}

	if converted, err := ParseHJSON(input); err == nil {
		if err := json.Unmarshal([]byte(converted), target); err == nil {
			return converted, nil
		}
	}

	return "", fmt.Errorf("smart parse: no strategy decoded the payload")
}
