package paths

import (
	"iter"

	"txmatching/pkg/domain"
)

// KeepHighestScoring collapses paths over the same donor set to the one with
// the highest score. Ties keep the first discovered path. Output follows the
// order in which each donor set was first seen.
func KeepHighestScoring(paths iter.Seq[Path]) []Path {
	var out []Path
	index := make(map[string]int)

	for p := range paths {
		k := p.key()
		i, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, p)
			continue
		}
		if domain.FloatGreater(p.Score, out[i].Score) {
			out[i] = p
		}
	}
	return out
}

// Stats counts the paths seen by Collect.
type Stats struct {
	Cycles    int
	Sequences int
	Retained  int
}

// Collect enumerates cycles and chains, deduplicates each kind and returns
// cycles followed by chains.
func Collect(g *Graph, maxCycleLength, maxSequenceLength int) ([]Path, Stats) {
	var stats Stats

	cycles := KeepHighestScoring(counted(FindAllCycles(g, maxCycleLength), &stats.Cycles))
	chains := KeepHighestScoring(counted(FindAllSequences(g, maxSequenceLength), &stats.Sequences))

	out := make([]Path, 0, len(cycles)+len(chains))
	out = append(out, cycles...)
	out = append(out, chains...)
	stats.Retained = len(out)
	return out, stats
}

func counted(seq iter.Seq[Path], n *int) iter.Seq[Path] {
	return func(yield func(Path) bool) {
		for p := range seq {
			*n++
			if !yield(p) {
				return
			}
		}
	}
}
