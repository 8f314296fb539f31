package mirror

import (
	"crypto/sha256"
	"encoding/hex"
)

// Len returns the number of mirrors in the plan.
func (p Plan) Len() int {
	n := 0
	for _, g := range p.Primary {
		n += len(g.Items)
	}
	for _, g := range p.Overflow {
		n += len(g.Items)
	}
	return n
}

// Empty reports whether the plan has nothing to render.
func (p Plan) Empty() bool {
	return p.Len() == 0
}

// OverflowLen returns the number of mirrors hidden behind the toggle.
func (p Plan) OverflowLen() int {
	n := 0
	for _, g := range p.Overflow {
		n += len(g.Items)
	}
	return n
}

// Items flattens the plan: primary items first, then overflow items.
func (p Plan) Items() []Mirror {
	out := make([]Mirror, 0, p.Len())
	for _, g := range p.Primary {
		out = append(out, g.Items...)
	}
	for _, g := range p.Overflow {
		out = append(out, g.Items...)
	}
	return out
}

// MergedOverflow combines overflow entries of the same provider, keeping
// the order in which providers first appear.
func (p Plan) MergedOverflow() []Group {
	var out []Group
	index := make(map[string]int)
	for _, g := range p.Overflow {
		i, ok := index[g.Provider]
		if !ok {
			index[g.Provider] = len(out)
			out = append(out, Group{Provider: g.Provider, Items: append([]Mirror(nil), g.Items...)})
			continue
		}
		out[i].Items = append(out[i].Items, g.Items...)
	}
	return out
}

// Hash returns a stable digest of the plan's layout.
func (p Plan) Hash() string {
	h := sha256.New()
	write := func(tier string, groups []Group) {
		for _, g := range groups {
			h.Write([]byte(tier))
			h.Write([]byte{0})
			h.Write([]byte(g.Provider))
			h.Write([]byte{0})
			for _, m := range g.Items {
				h.Write([]byte(m.URL))
				h.Write([]byte{0})
				h.Write([]byte(m.Label))
				h.Write([]byte{0})
			}
		}
	}
	write("primary", p.Primary)
	write("overflow", p.Overflow)
	return hex.EncodeToString(h.Sum(nil))
}
