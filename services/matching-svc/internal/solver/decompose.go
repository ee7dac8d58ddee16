package solver

import (
	"fmt"
	"slices"

	"txmatching/pkg/apperror"
	"txmatching/pkg/domain"
)

// DecomposeRounds rebuilds the rounds of a matching from a flat list of
// transplants, for example one loaded from storage.
//
// Pair x is followed by pair y when the recipient of x is the original
// recipient of the donor of y. A forward walk that returns to its start is a
// cycle; a walk that stops is completed backwards into a chain. Anything else
// means the stored data is corrupted and yields a critical CONSISTENCY_FAULT.
func DecomposeRounds(pool *domain.Pool, pairs []Transplant) ([]Round, error) {
	donors := pool.DonorIndex()
	recipients := pool.RecipientIndex()

	// recipient id -> pair whose donor is paired with that recipient
	feeds := make(map[int64]int, len(pairs))
	received := make(map[int64]struct{}, len(pairs))
	for i, p := range pairs {
		di, ok := donors[p.DonorID]
		if !ok {
			return nil, consistencyFault("transplant references unknown donor %d", p.DonorID)
		}
		if _, ok := recipients[p.RecipientID]; !ok {
			return nil, consistencyFault("transplant references unknown recipient %d", p.RecipientID)
		}
		if _, dup := received[p.RecipientID]; dup {
			return nil, consistencyFault("recipient %d receives more than one kidney", p.RecipientID)
		}
		received[p.RecipientID] = struct{}{}
		related := pool.Donors[di].RelatedRecipientID
		if related == 0 {
			continue
		}
		if prev, dup := feeds[related]; dup {
			return nil, consistencyFault("donors %d and %d of recipient %d both donate",
				pairs[prev].DonorID, p.DonorID, related)
		}
		feeds[related] = i
	}

	n := len(pairs)
	next := slices.Repeat([]int{-1}, n)
	prev := slices.Repeat([]int{-1}, n)
	for i, p := range pairs {
		j, ok := feeds[p.RecipientID]
		if !ok {
			continue
		}
		next[i] = j
		prev[j] = i
	}

	processed := make([]bool, n)
	var rounds []Round

	for start := 0; start < n; start++ {
		if processed[start] {
			continue
		}
		processed[start] = true
		walk := []int{start}

		cur := next[start]
		for cur != -1 && cur != start {
			if processed[cur] {
				return nil, consistencyFault("walk from transplant %d->%d ended at neither its start nor an open end",
					pairs[start].DonorID, pairs[start].RecipientID)
			}
			processed[cur] = true
			walk = append(walk, cur)
			cur = next[cur]
		}

		kind := RoundCycle
		if cur == -1 {
			kind = RoundChain
			for p := prev[start]; p != -1; p = prev[p] {
				if processed[p] {
					return nil, consistencyFault("backward walk from transplant %d->%d revisited a transplant",
						pairs[start].DonorID, pairs[start].RecipientID)
				}
				processed[p] = true
				walk = append([]int{p}, walk...)
			}
		}

		round := Round{Kind: kind, Transplants: make([]Transplant, len(walk))}
		for i, idx := range walk {
			round.Transplants[i] = pairs[idx]
		}
		rounds = append(rounds, round)
	}

	return rounds, nil
}

func consistencyFault(format string, args ...any) error {
	return apperror.NewCritical(apperror.CodeConsistencyFault, fmt.Sprintf(format, args...))
}
