package presentation

import (
	"testing"

	"ringlink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func members(urls ...string) []types.Member {
	out := make([]types.Member, len(urls))
	for i, u := range urls {
		out[i] = types.Member{Identity: types.Identity{URL: u}, Status: types.StatusActive}
	}
	return out
}

func TestNextPrevIndex(t *testing.T) {
	assert.Equal(t, 1, NextIndex(3, 0))
	assert.Equal(t, 0, NextIndex(3, 2))
	assert.Equal(t, 2, PrevIndex(3, 0))
	assert.Equal(t, 1, PrevIndex(3, 2))
	assert.Equal(t, 0, NextIndex(1, 0))
	assert.Equal(t, 0, PrevIndex(1, 0))
	assert.Equal(t, 0, NextIndex(0, 5))
}

func TestRandomIndex_SingleMemberTerminates(t *testing.T) {
	calls := 0
	intn := func(n int) int {
		calls++
		return 0
	}
	got := RandomIndex(members("https://self.example"), "https://self.example", intn)
	assert.Equal(t, 0, got)
	assert.Equal(t, 1, calls)
}

func TestRandomIndex_AvoidsSelf(t *testing.T) {
	// Lands on self twice, then on the other member.
	draws := []int{0, 0, 1}
	intn := func(n int) int {
		d := draws[0]
		draws = draws[1:]
		return d
	}
	got := RandomIndex(members("https://self.example", "https://other.example"), "https://self.example", intn)
	assert.Equal(t, 1, got)
}

func TestRandomIndex_GivesUpAfterRetries(t *testing.T) {
	calls := 0
	intn := func(n int) int {
		calls++
		return 0
	}
	got := RandomIndex(members("https://self.example", "https://other.example"), "https://self.example", intn)
	assert.Equal(t, 0, got)
	assert.Equal(t, 1+randomRetries, calls)
}

func TestRandomIndex_Empty(t *testing.T) {
	assert.Equal(t, -1, RandomIndex(nil, "https://self.example", nil))
}

func TestRandomIndex_DefaultSource(t *testing.T) {
	ms := members("https://a.example", "https://b.example", "https://c.example")
	seen := make(map[int]bool)
	for i := 0; i < 200; i++ {
		got := RandomIndex(ms, "https://a.example", nil)
		require.GreaterOrEqual(t, got, 0)
		require.Less(t, got, len(ms))
		seen[got] = true
	}
	assert.True(t, seen[1] && seen[2], "both other members get picked")
}

func TestStarsFor(t *testing.T) {
	tests := []struct {
		avg  float64
		want Stars
	}{
		{0, Stars{0, 0, 5}},
		{4.3, Stars{4, 0, 1}},
		{4.5, Stars{4, 1, 0}},
		{2.7, Stars{2, 1, 2}},
		{5, Stars{5, 0, 0}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StarsFor(tt.avg), "avg %.1f", tt.avg)
	}
}

func TestStartIndex(t *testing.T) {
	ms := members("https://a.example", "https://self.example", "https://c.example")
	assert.Equal(t, 2, StartIndex(ms, "https://self.example"))
	assert.Equal(t, 0, StartIndex(ms, "https://stranger.example"))
	assert.Equal(t, 0, StartIndex(members("https://a.example", "https://self.example"), "https://self.example"))
	assert.Equal(t, 0, StartIndex(nil, "https://self.example"))
}

func TestActiveMembers(t *testing.T) {
	ms := members("https://a.example", "https://b.example", "https://c.example")
	ms[1].Status = types.StatusDead

	active := ActiveMembers(ms)
	require.Len(t, active, 2)
	assert.Equal(t, "https://a.example", active[0].URL)
	assert.Equal(t, "https://c.example", active[1].URL)
}

func TestResolveDisplay(t *testing.T) {
	saved := types.DisplaySettings{Theme: types.ThemeDark}

	got, err := ResolveDisplay(saved, types.DisplaySettings{Mode: types.ModeLive})
	require.NoError(t, err)
	assert.Equal(t, types.DisplaySettings{Mode: types.ModeLive, Theme: types.ThemeDark, Width: types.WidthCompact}, got)

	_, err = ResolveDisplay(saved, types.DisplaySettings{Width: "enormous"})
	assert.Error(t, err)
}

func TestBuildWidget(t *testing.T) {
	ms := members("https://self.example", "https://dead.example", "https://rated.example")
	ms[1].Status = types.StatusDead
	ms[2].Ratings = map[string]int{"https://x.example": 5, "https://y.example": 4}

	view := BuildWidget("r1", "Ring", ms, "https://self.example", types.DefaultDisplaySettings())
	require.Len(t, view.Members, 2)
	assert.Equal(t, 1, view.Start)
	assert.Equal(t, 4.5, view.Members[1].Average)
	assert.Equal(t, 2, view.Members[1].Votes)
	assert.Equal(t, Stars{4, 1, 0}, view.Members[1].Stars)
	assert.Equal(t, Stars{0, 0, 5}, view.Members[0].Stars)
}
