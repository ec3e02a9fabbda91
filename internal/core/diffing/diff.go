// Package diffing compares the tour sets of two forecast versions by
// fingerprint. This is part of the Functional Core - no I/O, only pure
// functions. The comparison is a multiset difference, so it is
// order-independent, deterministic and safe to cache.
package diffing

import (
	"fmt"
	"sort"
)

// Diff types.
const (
	TypeAdded   = "added"
	TypeRemoved = "removed"
	TypeChanged = "changed"
)

// Tour is the identity of one tour instance for diffing: its fingerprint
// plus the slot key fields used for change linkage.
type Tour struct {
	Fingerprint string
	Weekday     int
	Depot       string
	Skill       string
}

// Entry classifies one fingerprint.
type Entry struct {
	Fingerprint string
	Type        string
	Count       int
	Detail      string // for changed entries: the linked peer fingerprint
}

type surplus struct {
	tour  Tour
	count int
}

// Diff classifies each fingerprint of two tour sets as added (only in new),
// removed (only in old) or changed.
//
// Changed linkage rule: a removed and an added fingerprint are linked as
// changed iff each is the single unmatched fingerprint for the same slot
// key (weekday, depot, skill). A slot with several unmatched tours on
// either side is ambiguous and stays added/removed. The rule is symmetric:
// swapping the inputs swaps added and removed and preserves changed pairs.
func Diff(before, after []Tour) []Entry {
	counts := make(map[string]int)
	tours := make(map[string]Tour)
	for _, t := range before {
		counts[t.Fingerprint]--
		tours[t.Fingerprint] = t
	}
	for _, t := range after {
		counts[t.Fingerprint]++
		tours[t.Fingerprint] = t
	}

	removedBySlot := make(map[string][]surplus)
	addedBySlot := make(map[string][]surplus)
	for fp, delta := range counts {
		if delta == 0 {
			continue
		}
		t := tours[fp]
		key := slotKey(t)
		if delta < 0 {
			removedBySlot[key] = append(removedBySlot[key], surplus{tour: t, count: -delta})
		} else {
			addedBySlot[key] = append(addedBySlot[key], surplus{tour: t, count: delta})
		}
	}

	var entries []Entry
	for key, removed := range removedBySlot {
		added := addedBySlot[key]
		if len(removed) == 1 && len(added) == 1 {
			entries = append(entries,
				Entry{Fingerprint: removed[0].tour.Fingerprint, Type: TypeChanged, Count: removed[0].count, Detail: added[0].tour.Fingerprint},
				Entry{Fingerprint: added[0].tour.Fingerprint, Type: TypeChanged, Count: added[0].count, Detail: removed[0].tour.Fingerprint},
			)
			delete(addedBySlot, key)
			continue
		}
		for _, s := range removed {
			entries = append(entries, Entry{Fingerprint: s.tour.Fingerprint, Type: TypeRemoved, Count: s.count})
		}
	}
	for _, added := range addedBySlot {
		for _, s := range added {
			entries = append(entries, Entry{Fingerprint: s.tour.Fingerprint, Type: TypeAdded, Count: s.count})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Fingerprint != entries[j].Fingerprint {
			return entries[i].Fingerprint < entries[j].Fingerprint
		}
		return entries[i].Type < entries[j].Type
	})
	return entries
}

func slotKey(t Tour) string {
	return fmt.Sprintf("%d|%s|%s", t.Weekday, t.Depot, t.Skill)
}
