package domain

import (
	"errors"
	"testing"
)

func TestDirection_Step(t *testing.T) {
	tests := []struct {
		dir      Direction
		index    int
		total    int
		expected int
	}{
		{DirectionNext, 0, 3, 1},
		{DirectionNext, 2, 3, 0},
		{DirectionPrev, 0, 3, 2},
		{DirectionPrev, 2, 3, 1},
		{DirectionNone, 1, 3, 1},
		{DirectionNext, 0, 1, 0},
		{DirectionPrev, 0, 1, 0},
	}

	for _, tt := range tests {
		if got := tt.dir.Step(tt.index, tt.total); got != tt.expected {
			t.Errorf("%q from %d of %d: expected %d, got %d", tt.dir, tt.index, tt.total, tt.expected, got)
		}
	}
}

func TestParseDirection(t *testing.T) {
	for _, s := range []string{"", "prev", "next"} {
		if _, err := ParseDirection(s); err != nil {
			t.Errorf("expected %q to parse, got %v", s, err)
		}
	}

	if _, err := ParseDirection("up"); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("expected ErrInvalidIndex, got %v", err)
	}
}

func TestWrap_KeepsBothKinds(t *testing.T) {
	cause := errors.New("disk on fire")
	err := Wrap(ErrIO, cause, "write mask")

	if !errors.Is(err, ErrIO) || !errors.Is(err, cause) {
		t.Errorf("expected both ErrIO and cause to match, got %v", err)
	}
}
