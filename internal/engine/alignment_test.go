package engine

import (
	"testing"
)

func positions(team Team) []int {
	out := make([]int, len(team.Players))
	for i, p := range team.Players {
		out[i] = p.Position
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAlign_RanksByEnergy(t *testing.T) {
	cases := []struct {
		name      string
		teamIndex int
		energies  []float64
		want      []int
	}{
		{"team 1 shuffled", 0, []float64{30, 10, 40, 20}, []int{3, 1, 4, 2}},
		{"team 2 shuffled", 1, []float64{30, 10, 40, 20}, []int{3, 1, 4, 2}},
		{"team 1 ties keep index order", 0, []float64{5, 5, 1, 5}, []int{2, 3, 1, 4}},
		{"team 2 ties keep index order", 1, []float64{5, 5, 1, 5}, []int{2, 3, 1, 4}},
		{"single player", 0, []float64{12}, []int{1}},
		{"six players", 1, []float64{6, 5, 4, 3, 2, 1}, []int{6, 5, 4, 3, 2, 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := stateWithEnergies(tc.energies, tc.energies)
			team := &s.Teams[tc.teamIndex]
			Align(team, tc.teamIndex)

			if got := positions(*team); !equalInts(got, tc.want) {
				t.Fatalf("positions: got %v, want %v", got, tc.want)
			}
			for _, p := range team.Players {
				if p.Effort != p.Energy*float64(p.Position) {
					t.Fatalf("player %d effort %v, want %v", p.Index, p.Effort, p.Energy*float64(p.Position))
				}
			}
		})
	}
}

func TestAlign_IsIdempotent(t *testing.T) {
	s := stateWithEnergies([]float64{7, 3, 3, 9}, []float64{1, 8, 8, 2})

	AlignAll(s)
	first := [][]int{positions(s.Teams[0]), positions(s.Teams[1])}
	efforts := []float64{s.Teams[0].Players[1].Effort, s.Teams[1].Players[2].Effort}

	AlignAll(s)
	second := [][]int{positions(s.Teams[0]), positions(s.Teams[1])}

	for i := range first {
		if !equalInts(first[i], second[i]) {
			t.Fatalf("team %d: %v then %v", i, first[i], second[i])
		}
	}
	if s.Teams[0].Players[1].Effort != efforts[0] || s.Teams[1].Players[2].Effort != efforts[1] {
		t.Fatalf("efforts changed on second pass")
	}
}

func TestAlign_RecoveringPlayerKeepsZeroEffort(t *testing.T) {
	s := stateWithEnergies([]float64{10, 50}, []float64{10, 50})
	s.Teams[1].Players[1].Recovering = true
	s.Teams[1].Players[1].Effort = 0

	Align(&s.Teams[1], 1)

	p := s.Teams[1].Players[1]
	if p.Position != 2 {
		t.Fatalf("position: got %d, want 2", p.Position)
	}
	if p.Effort != 0 {
		t.Fatalf("recovering player effort %v, want 0", p.Effort)
	}
}
