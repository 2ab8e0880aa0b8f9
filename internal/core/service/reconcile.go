package service

import (
	"github.com/Wyydra/callroom/internal/core/domain"
)

type keptRow struct {
	item     domain.ParticipantViewModel
	previous int
}

// Reconcile computes the row operations that turn previous into next. Rows
// are identified by peer id: a peer present in both lists is only ever
// updated, never removed and re-inserted. Removed rows come back in
// descending order so they can be deleted one by one; inserts and updates
// are in ascending target order.
func Reconcile(previous, next []domain.ParticipantViewModel) domain.Diff {
	prevIndex := make(map[domain.PeerID]int, len(previous))
	for i, vm := range previous {
		if _, ok := prevIndex[vm.PeerID]; !ok {
			prevIndex[vm.PeerID] = i
		}
	}

	claimed := make([]bool, len(previous))
	source := make([]int, len(next)) // previous row per target, -1 for inserts
	reused := make([]int, len(next))
	for i, vm := range next {
		source[i], reused[i] = -1, -1
		p, ok := prevIndex[vm.PeerID]
		if !ok {
			continue
		}
		if claimed[p] {
			reused[i] = p
			continue
		}
		claimed[p] = true
		source[i] = p
	}

	var diff domain.Diff
	rows := make([]keptRow, 0, len(next))
	for i := len(previous) - 1; i >= 0; i-- {
		if !claimed[i] {
			diff.Removed = append(diff.Removed, i)
		}
	}
	for i, vm := range previous {
		if claimed[i] {
			rows = append(rows, keptRow{item: vm, previous: i})
		}
	}

	for i, vm := range next {
		if source[i] >= 0 {
			continue
		}
		diff.Inserted = append(diff.Inserted, domain.Insertion{
			Index:         i,
			Item:          vm,
			PreviousIndex: reused[i],
		})
		rows = append(rows, keptRow{})
		copy(rows[i+1:], rows[i:])
		rows[i] = keptRow{item: vm, previous: -1}
	}

	for i, vm := range next {
		if source[i] < 0 {
			continue
		}
		if rows[i].previous == source[i] && rows[i].item.Equal(vm) {
			continue
		}
		diff.Updated = append(diff.Updated, domain.Update{
			Index:         i,
			Item:          vm,
			PreviousIndex: source[i],
		})
	}
	return diff
}
