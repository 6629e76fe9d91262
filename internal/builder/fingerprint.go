package builder

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/specialistvlad/buildgraph/internal/itemtype"
	"github.com/specialistvlad/buildgraph/internal/step"
)

// fingerprint hashes the structural shape of the steps: IDs, declarations,
// flags and watches, in rank order. Bodies and revisions are not part of it.
func fingerprint(steps []*step.Descriptor) uint64 {
	h := xxhash.New()
	write := func(s string) {
		// Length prefixes keep "ab"+"c" apart from "a"+"bc".
		_, _ = h.WriteString(strconv.Itoa(len(s)))
		_, _ = h.WriteString(":")
		_, _ = h.WriteString(s)
	}
	writeType := func(t itemtype.Type) {
		write(t.Name())
		write(t.Kind().String())
		if t.Payload() != nil {
			write(t.Payload().String())
		}
	}

	for _, d := range steps {
		write("step")
		write(d.ID)
		write(strconv.FormatBool(d.Override))
		for _, c := range d.Consumes {
			write("consume")
			writeType(c.Type)
			write(c.Modifier.String())
		}
		for _, p := range d.Produces {
			write("produce")
			writeType(p.Type)
			write(p.Modifier.String())
			write(strconv.FormatBool(p.Weak))
		}
		for _, w := range d.Watches {
			write("watch")
			write(w)
		}
	}
	return h.Sum64()
}
