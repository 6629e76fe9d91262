package nodeid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var segmentRegex = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_-]*)(?:\[(\d+)\])?$`)

// Parse converts the canonical string form into an Address.
func Parse(raw string) (*Address, error) {
	if raw == "" {
		return nil, fmt.Errorf("identifier cannot be empty")
	}

	addr := &Address{}
	for _, part := range strings.Split(raw, ".") {
		if part == "" {
			return nil, fmt.Errorf("identifier %q contains an empty segment", raw)
		}
		m := segmentRegex.FindStringSubmatch(part)
		if m == nil {
			return nil, fmt.Errorf("identifier %q: invalid segment %q", raw, part)
		}
		seg := Seg(m[1])
		if m[2] != "" {
			idx, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, fmt.Errorf("identifier %q: index out of range in %q", raw, part)
			}
			seg.Index = idx
		}
		addr.Path = append(addr.Path, seg)
	}
	return addr, nil
}

// MustParse is like Parse but panics on malformed input. Meant for
// identifiers that are compile-time constants.
func MustParse(raw string) *Address {
	addr, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return addr
}
