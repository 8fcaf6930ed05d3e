// Package presentation holds the read-side selection logic behind ring
// widgets: carousel stepping, random picks, star ratings and display
// settings. Nothing here touches storage or the network.
package presentation

import (
	"math"
	"math/rand/v2"

	"ringlink/pkg/types"
)

// randomRetries bounds how often RandomIndex redraws to avoid self.
const randomRetries = 10

// NextIndex steps forward around a ring of n members
func NextIndex(n, current int) int {
	if n <= 0 {
		return 0
	}
	return ((current+1)%n + n) % n
}

// PrevIndex steps backward around a ring of n members
func PrevIndex(n, current int) int {
	if n <= 0 {
		return 0
	}
	return ((current-1)%n + n) % n
}

// RandomIndex picks a uniformly random member, redrawing up to ten times
// while it lands on self. Avoidance is best effort: after the retries the
// last draw is returned as is. Returns -1 for an empty list. intn may be
// nil to use the global source.
func RandomIndex(members []types.Member, self string, intn func(int) int) int {
	if len(members) == 0 {
		return -1
	}
	if intn == nil {
		intn = rand.IntN
	}

	i := intn(len(members))
	if len(members) == 1 {
		return i
	}
	for attempts := 0; members[i].URL == self && attempts < randomRetries; attempts++ {
		i = intn(len(members))
	}
	return i
}

// Stars is a five-slot star rendering of an average rating.
type Stars struct {
	Full  int `json:"full"`
	Half  int `json:"half"`
	Empty int `json:"empty"`
}

// StarsFor renders avg as full, half and empty stars
func StarsFor(avg float64) Stars {
	avg = math.Max(0, math.Min(5, avg))
	full := int(math.Floor(avg))
	half := 0
	if avg-float64(full) >= 0.5 {
		half = 1
	}
	return Stars{Full: full, Half: half, Empty: 5 - full - half}
}

// ActiveMembers drops dead members, keeping order
func ActiveMembers(members []types.Member) []types.Member {
	out := make([]types.Member, 0, len(members))
	for _, m := range members {
		if !m.IsDead() {
			out = append(out, m)
		}
	}
	return out
}

// StartIndex is where a carousel on the self site starts: the member right
// after self, or the first member when self is not in the list.
func StartIndex(members []types.Member, self string) int {
	for i, m := range members {
		if m.URL == self {
			return NextIndex(len(members), i)
		}
	}
	return 0
}

// ResolveDisplay overlays per-widget overrides on the site defaults.
func ResolveDisplay(defaults, overrides types.DisplaySettings) (types.DisplaySettings, error) {
	if err := overrides.Validate(); err != nil {
		return types.DisplaySettings{}, err
	}
	return types.DefaultDisplaySettings().Merge(defaults).Merge(overrides), nil
}
