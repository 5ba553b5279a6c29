package matroska

import (
	"cmp"
	"slices"
)

// SeekEntry records where a level-1 element lives. Position is relative to the
// start of the segment's data.
type SeekEntry struct {
	ElementId ElementId
	IdLength  int
	Position  int64
}

func (e SeekEntry) AbsolutePosition(segmentOffset int64) int64 {
	return segmentOffset + e.Position
}

func compareSeekEntries(a, b SeekEntry) int {
	return cmp.Or(
		cmp.Compare(a.IdLength, b.IdLength),
		cmp.Compare(a.ElementId, b.ElementId),
		cmp.Compare(a.Position, b.Position),
	)
}

// SeekIndex collects the entries of every Seek-Head reachable from the
// segment. Entries are only ever appended.
type SeekIndex struct {
	entries  []SeekEntry
	expanded map[int64]struct{}
}

func NewSeekIndex() *SeekIndex {
	return &SeekIndex{expanded: map[int64]struct{}{}}
}

func (s *SeekIndex) Add(entry SeekEntry) {
	s.entries = append(s.entries, entry)
}

func (s *SeekIndex) Entries() []SeekEntry {
	return s.entries
}

func (s *SeekIndex) Len() int {
	return len(s.entries)
}

func (s *SeekIndex) Sort() {
	slices.SortStableFunc(s.entries, compareSeekEntries)
}

// MarkExpanded records that the Seek-Head at the absolute position is being
// indexed. It returns false when that Seek-Head was already seen.
func (s *SeekIndex) MarkExpanded(absolutePosition int64) bool {
	if _, seen := s.expanded[absolutePosition]; seen {
		return false
	}

	s.expanded[absolutePosition] = struct{}{}

	return true
}

// NextAfter returns the entry with the smallest position strictly greater than
// position. Ties go to the entry that sorts first.
func (s *SeekIndex) NextAfter(position int64) (SeekEntry, bool) {
	var next SeekEntry
	found := false

	for _, entry := range s.entries {
		if entry.Position <= position {
			continue
		}

		if !found || entry.Position < next.Position || (entry.Position == next.Position && compareSeekEntries(entry, next) < 0) {
			next = entry
			found = true
		}
	}

	return next, found
}

// Find returns the indexed positions of id, lowest first.
func (s *SeekIndex) Find(id ElementId) []SeekEntry {
	var found []SeekEntry

	for _, entry := range s.entries {
		if entry.ElementId == id {
			found = append(found, entry)
		}
	}

	slices.SortFunc(found, compareSeekEntries)

	return slices.CompactFunc(found, func(a, b SeekEntry) bool {
		return a.Position == b.Position
	})
}
