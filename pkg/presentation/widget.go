package presentation

import "ringlink/pkg/types"

type MemberView struct {
	types.Identity
	Average float64 `json:"average"`
	Votes   int     `json:"votes"`
	Stars   Stars   `json:"stars"`
}

// WidgetView is everything a rendering surface needs to draw one ring.
type WidgetView struct {
	RingID  string                `json:"ring_id"`
	Name    string                `json:"name"`
	Display types.DisplaySettings `json:"display"`
	Members []MemberView          `json:"members"`
	Start   int                   `json:"start"`
}

// BuildWidget assembles the view of a ring as seen from the self site.
// Dead members are left out.
func BuildWidget(ringID, name string, members []types.Member, self string, display types.DisplaySettings) WidgetView {
	active := ActiveMembers(members)
	view := WidgetView{
		RingID:  ringID,
		Name:    name,
		Display: display,
		Members: make([]MemberView, 0, len(active)),
		Start:   StartIndex(active, self),
	}
	for _, m := range active {
		avg := m.AverageRating()
		view.Members = append(view.Members, MemberView{
			Identity: m.Identity,
			Average:  avg,
			Votes:    len(m.Ratings),
			Stars:    StarsFor(avg),
		})
	}
	return view
}
