package phh

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// Encode writes the hand history to the provided writer in PHH TOML format.
func Encode(w io.Writer, hand *HandHistory) error {
	if hand == nil {
		return fmt.Errorf("phh: hand history is nil")
	}
	enc := toml.NewEncoder(w)
	enc.Indent = "\t"
	return enc.Encode(hand)
}

// EncodeToBytes encodes and returns the result as bytes.
func EncodeToBytes(hand *HandHistory) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, hand); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads one hand.
func Decode(r io.Reader) (*HandHistory, error) {
	var hand HandHistory
	if _, err := toml.NewDecoder(r).Decode(&hand); err != nil {
		return nil, fmt.Errorf("phh: %w", err)
	}
	return &hand, nil
}

// DecodeFile reads one hand from a .phh file.
func DecodeFile(path string) (*HandHistory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// FormatAction converts an engine action to its PHH string. raised says
// whether the action lifted the street's highest bet, in which case total
// is the amount the player has now put in on this street.
func FormatAction(player int, action string, total uint64, raised bool) string {
	p := fmt.Sprintf("p%d", player)
	switch action {
	case "fold":
		return p + " f"
	case "check", "call":
		return p + " cc"
	case "raise", "allin":
		if !raised {
			return p + " cc"
		}
		return fmt.Sprintf("%s cbr %d", p, total)
	default:
		return fmt.Sprintf("# %s %s %d", p, action, total)
	}
}
