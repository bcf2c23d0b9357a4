package snapshot

import (
	"fmt"
	"strconv"
	"strings"
)

// HexColor converts a computed colour ("rgb(r, g, b)", "rgba(r, g, b, a)",
// or the space-separated level 4 form) to "#rrggbb". Hex input is
// normalised to lower case. Alpha is dropped. ok is false for anything
// else, including named colours.
func HexColor(c string) (string, bool) {
	c = strings.TrimSpace(strings.ToLower(c))
	if strings.HasPrefix(c, "#") {
		switch len(c) {
		case 4:
			return "#" + string([]byte{c[1], c[1], c[2], c[2], c[3], c[3]}), isHex(c[1:])
		case 7:
			return c, isHex(c[1:])
		}
		return "", false
	}

	var body string
	switch {
	case strings.HasPrefix(c, "rgba(") && strings.HasSuffix(c, ")"):
		body = c[5 : len(c)-1]
	case strings.HasPrefix(c, "rgb(") && strings.HasSuffix(c, ")"):
		body = c[4 : len(c)-1]
	default:
		return "", false
	}

	if i := strings.IndexByte(body, '/'); i >= 0 {
		body = body[:i]
	}
	parts := strings.FieldsFunc(body, func(r rune) bool { return r == ',' || r == ' ' })
	if len(parts) < 3 {
		return "", false
	}

	var rgb [3]int
	for i := 0; i < 3; i++ {
		v, err := channel(parts[i])
		if err != nil {
			return "", false
		}
		rgb[i] = v
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2]), true
}

func channel(s string) (int, error) {
	if strings.HasSuffix(s, "%") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, err
		}
		return clamp(int(f*255/100 + 0.5)), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return clamp(int(f + 0.5)), nil
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
