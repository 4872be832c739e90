package access

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Rank is a privilege level on the closed scale MinRank..MaxRank.
// NoRank stands for an absent or invalid rank and never satisfies a gate.
type Rank int

const (
	NoRank  Rank = 0
	MinRank Rank = 1
	MaxRank Rank = 5
)

var ErrInsufficientRank = errors.New("insufficient rank")

func (r Rank) Valid() bool {
	return r >= MinRank && r <= MaxRank
}

func (r Rank) String() string {
	return strconv.Itoa(int(r))
}

// ParseRank accepts the textual forms found in credentials ("3", " 3 ").
// Anything that is not an integer on the scale yields NoRank.
func ParseRank(raw string) Rank {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return NoRank
	}
	return RankOf(value)
}

// RankOf converts an integer, mapping out-of-scale values to NoRank.
func RankOf(value int) Rank {
	r := Rank(value)
	if !r.Valid() {
		return NoRank
	}
	return r
}

// Allowed reports whether a subject holding subject may reach a resource
// gated at required. An invalid subject rank is always denied.
func Allowed(subject, required Rank) bool {
	if !subject.Valid() {
		return false
	}
	if required < MinRank {
		required = MinRank
	}
	return subject >= required
}

// Check is Allowed expressed as an error for callers that propagate denials.
func Check(subject, required Rank) error {
	if Allowed(subject, required) {
		return nil
	}
	return ErrInsufficientRank
}

// UnmarshalJSON accepts both the string and the number encodings of a rank.
// Malformed values decode to NoRank rather than failing the whole document.
func (r *Rank) UnmarshalJSON(data []byte) error {
	var number json.Number
	if err := json.Unmarshal(data, &number); err == nil {
		*r = ParseRank(number.String())
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*r = ParseRank(text)
		return nil
	}
	*r = NoRank
	return nil
}

func (r Rank) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.Itoa(int(r)))
}
