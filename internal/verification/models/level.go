package models

import (
	"fmt"
	"strings"

	dErrors "aip/pkg/domain-errors"
)

// Level is a trust tier. Levels form the strict total order V0 < V1 < ... < V5.
type Level int

const (
	LevelV0 Level = iota
	LevelV1
	LevelV2
	LevelV3
	LevelV4
	LevelV5
)

const (
	MinLevel = LevelV0
	MaxLevel = LevelV5
)

// ParseLevel accepts "V0".."V5" (case-insensitive).
func ParseLevel(s string) (Level, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 2 || s[0] != 'V' || s[1] < '0' || s[1] > '5' {
		return 0, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid verification level %q: must be V0-V5", s))
	}
	return Level(s[1] - '0'), nil
}

func (l Level) IsValid() bool {
	return l >= MinLevel && l <= MaxLevel
}

func (l Level) String() string {
	if !l.IsValid() {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return fmt.Sprintf("V%d", int(l))
}

// Skips reports whether moving from l to to passes over at least one level.
func (l Level) Skips(to Level) bool {
	return to-l > 1
}

func (l Level) MarshalText() ([]byte, error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("invalid level %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
