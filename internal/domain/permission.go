package domain

import "fmt"

// Level is a permission tier, ordered by privilege.
type Level int

const (
	LevelNone Level = iota
	LevelPublic
	LevelUser
	LevelPlus
	LevelAdmin
)

// LevelFree is the tier granted to anonymous free usage.
const LevelFree = LevelPublic

var levelLabels = map[Level]string{
	LevelNone:   "anonymous",
	LevelPublic: "public",
	LevelUser:   "user",
	LevelPlus:   "plus",
	LevelAdmin:  "admin",
}

// Label returns the display name of l, or ErrUnknownLevel.
func (l Level) Label() (string, error) {
	s, ok := levelLabels[l]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownLevel, int(l))
	}
	return s, nil
}

// String panics for values outside the defined range.
func (l Level) String() string {
	s, err := l.Label()
	if err != nil {
		panic(err)
	}
	return s
}
