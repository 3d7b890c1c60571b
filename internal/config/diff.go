package config

import (
	logx "tickwork/pkg/logx"
)

// DiffKeys returns the keys added, removed and changed between two stores.
func DiffKeys(oldStore, newStore *Store) (added, removed, changed []string) {
	for _, k := range newStore.Keys() {
		ov, ok := oldStore.Lookup(k)
		if !ok {
			added = append(added, k)
			continue
		}
		nv, _ := newStore.Lookup(k)
		if ov != nv {
			changed = append(changed, k)
		}
	}
	for _, k := range oldStore.Keys() {
		if _, ok := newStore.Lookup(k); !ok {
			removed = append(removed, k)
		}
	}
	return added, removed, changed
}

// SummarizeChange returns log fields describing a reload.
// Only key names are logged, never values.
func SummarizeChange(oldStore, newStore *Store) []logx.Field {
	added, removed, changed := DiffKeys(oldStore, newStore)
	return []logx.Field{
		logx.Int("keys", newStore.Len()),
		logx.Any("added", added),
		logx.Any("removed", removed),
		logx.Any("changed", changed),
	}
}
