// Package sparse provides a bounded sparse set with O(1) insert, remove and
// membership, plus dense iteration over the present keys.
//
// The set keeps two views of the key space [0, Size):
//
//	sparse[key]  = position of key in dense
//	dense[pos]   = key at position pos
//
// Positions [0, Len()) hold the present keys. Unlike the classic
// Briggs-Torczon layout, both views always form a permutation of [0, Size):
// Insert and Remove swap instead of overwrite. Absent keys therefore sit in
// dense[Len():], and Next() yields a free key in O(1) without a separate free
// list.
//
// # Swap-remove relocation
//
// Remove moves the key at the last dense position into the vacated position.
// Owners that keep per-position data (such as a value buffer) must mirror the
// move:
//
//	pos := s.Position(key)
//	last := s.Len() - 1
//	s.Remove(key)
//	values[pos] = values[last]
//
// Removal does not preserve dense order.
package sparse
