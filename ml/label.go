package ml

import (
	"fmt"
	"strconv"
	"strings"
)

type Label int

const (
	Rejected Label = 0
	Approved Label = 1
)

func (l Label) Valid() bool {
	return l == Rejected || l == Approved
}

func (l Label) String() string {
	switch l {
	case Approved:
		return "Approved"
	case Rejected:
		return "Rejected"
	default:
		return "Label(" + strconv.Itoa(int(l)) + ")"
	}
}

// Display returns the cooperative's wording: Lolos / Tidak Lolos.
func (l Label) Display() string {
	if l == Approved {
		return "Lolos"
	}
	return "Tidak Lolos"
}

func ParseLabel(s string) (Label, error) {
	switch strings.TrimSpace(s) {
	case "1", "Lolos", "Approved":
		return Approved, nil
	case "0", "Tidak Lolos", "Rejected":
		return Rejected, nil
	}
	// pandas writes integer columns back as floats once a NaN has been seen
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		if l := Label(f); float64(l) == f && l.Valid() {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidLabel, s)
}

func (l Label) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(l))), nil
}

// UnmarshalJSON accepts 0/1 as numbers or any ParseLabel spelling as a string.
func (l *Label) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	parsed, err := ParseLabel(raw)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
