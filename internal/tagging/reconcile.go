package tagging

import "github.com/ethereum-tag-service/ets-server/internal/domain"

// Dedup returns ids with duplicates dropped, first occurrence order kept.
func Dedup(ids []domain.Hash) []domain.Hash {
	seen := make(map[domain.Hash]struct{}, len(ids))
	out := make([]domain.Hash, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toSet(ids []domain.Hash) map[domain.Hash]struct{} {
	set := make(map[domain.Hash]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Apply inserts every requested tag not already in current. It returns the
// resulting set and the tags actually inserted, both in insertion order.
// current is not modified.
func Apply(current, requested []domain.Hash) (next, added []domain.Hash) {
	have := toSet(current)
	next = append(make([]domain.Hash, 0, len(current)+len(requested)), current...)
	for _, id := range Dedup(requested) {
		if _, ok := have[id]; ok {
			continue
		}
		next = append(next, id)
		added = append(added, id)
	}
	return next, added
}

// Remove drops every requested tag present in current, ignoring the rest.
// It returns the resulting set and the tags actually removed.
func Remove(current, requested []domain.Hash) (next, removed []domain.Hash) {
	drop := toSet(requested)
	next = make([]domain.Hash, 0, len(current))
	for _, id := range current {
		if _, ok := drop[id]; ok {
			removed = append(removed, id)
			continue
		}
		next = append(next, id)
	}
	return next, removed
}

// Replace makes the set equal requested: Remove(current − requested) then
// Apply(requested − current). Tags in both are untouched and keep their
// position.
func Replace(current, requested []domain.Hash) (next, removed, added []domain.Hash) {
	want := toSet(requested)
	var stale []domain.Hash
	for _, id := range current {
		if _, ok := want[id]; !ok {
			stale = append(stale, id)
		}
	}
	next, removed = Remove(current, stale)
	next, added = Apply(next, requested)
	return next, removed, added
}
