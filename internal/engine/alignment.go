package engine

import (
	"cmp"
	"slices"
)

// Align reorders positions by energy. The ranking is a stable ascending sort,
// so equal energies keep their original order. Team index 0 walks the ranking
// from the top, handing out positions n..1; every other team walks it from the
// bottom, handing out 1..n.
func Align(team *Team, teamIndex int) {
	n := len(team.Players)
	ranking := make([]int, n)
	for i := range ranking {
		ranking[i] = i
	}
	slices.SortStableFunc(ranking, func(a, b int) int {
		return cmp.Compare(team.Players[a].Energy, team.Players[b].Energy)
	})

	if teamIndex == 0 {
		for i := 0; i < n; i++ {
			team.Players[ranking[n-1-i]].Position = n - i
		}
	} else {
		for i, idx := range ranking {
			team.Players[idx].Position = i + 1
		}
	}

	for i := range team.Players {
		p := &team.Players[i]
		if p.Pulling() {
			p.Effort = p.Energy * float64(p.Position)
		}
	}
}

// AlignAll aligns every team.
func AlignAll(s *State) {
	for t := range s.Teams {
		Align(&s.Teams[t], t)
	}
}
