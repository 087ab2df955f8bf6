package domain

import (
	"time"
)

type Direction string

const (
	DirectionNone Direction = ""
	DirectionPrev Direction = "prev"
	DirectionNext Direction = "next"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case DirectionNone, DirectionPrev, DirectionNext:
		return d, nil
	default:
		return DirectionNone, Errorf(ErrInvalidIndex, "unknown direction %q", s)
	}
}

// Step applies the direction to index within a circular set of size total.
func (d Direction) Step(index, total int) int {
	switch d {
	case DirectionPrev:
		return (index - 1 + total) % total
	case DirectionNext:
		return (index + 1) % total
	default:
		return index
	}
}

// PairQuery selects the starting image of a pairing request. Filename wins
// when it names a member of the image set; Index is the numeric fallback.
type PairQuery struct {
	Filename  string
	Index     *int
	Direction Direction
}

type Pair struct {
	Filename     string `json:"filename"`
	CurrentIndex int    `json:"current_index"`
	TotalPairs   int    `json:"total_pairs"`
	ImageURL     string `json:"image"`
	MaskURL      string `json:"mask"`
	PrevFilename string `json:"prev_filename"`
	NextFilename string `json:"next_filename"`
}

type SaveMaskRequest struct {
	Image        string `json:"image" binding:"required"`
	MaskFilename string `json:"maskFilename" binding:"required"`
}

type Archive struct {
	Name      string
	Data      []byte
	CreatedAt time.Time
}
