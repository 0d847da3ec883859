package optimistic

// ReplaceByKey swaps the entry sharing item's key for item. Lists without
// such an entry come back unchanged.
func ReplaceByKey[T any](key func(T) string, item T) Transform[T] {
	id := key(item)
	return func(items []T) []T {
		for i, it := range items {
			if key(it) == id {
				items[i] = item
			}
		}
		return items
	}
}

// UpdateByKey applies fn to the entry with the given key.
func UpdateByKey[T any](key func(T) string, id string, fn func(T) T) Transform[T] {
	return func(items []T) []T {
		for i, it := range items {
			if key(it) == id {
				items[i] = fn(it)
			}
		}
		return items
	}
}

// RemoveByKey drops the entry with the given key.
func RemoveByKey[T any](key func(T) string, id string) Transform[T] {
	return func(items []T) []T {
		out := items[:0]
		for _, it := range items {
			if key(it) != id {
				out = append(out, it)
			}
		}
		return out
	}
}

// Prepend puts item first.
func Prepend[T any](items []T, item T) []T {
	return append([]T{item}, items...)
}

// RestoreKey puts the entry with key id back the way it was in before, at its
// old position, leaving every other entry of current alone. An id that was
// absent from before is removed. With no interleaved mutations the result
// equals before.
func RestoreKey[T any](key func(T) string, id string) Rollback[T] {
	return func(before, current []T) []T {
		idx := indexOf(key, before, id)
		out := RemoveByKey(key, id)(current)
		if idx < 0 {
			return out
		}
		pos := 0
		if i := lastPresent(key, before[:idx], out); i >= 0 {
			pos = i + 1
		} else if i := firstPresent(key, before[idx+1:], out); i >= 0 {
			pos = i
		}
		out = append(out, before[idx])
		copy(out[pos+1:], out[pos:])
		out[pos] = before[idx]
		return out
	}
}

// indexOf returns the position of the entry with key id in items, or -1.
func indexOf[T any](key func(T) string, items []T, id string) int {
	for i, it := range items {
		if key(it) == id {
			return i
		}
	}
	return -1
}

// lastPresent is the index in out of the last entry of prev still in out.
func lastPresent[T any](key func(T) string, prev, out []T) int {
	for j := len(prev) - 1; j >= 0; j-- {
		if i := indexOf(key, out, key(prev[j])); i >= 0 {
			return i
		}
	}
	return -1
}

// firstPresent is the index in out of the first entry of next still in out.
func firstPresent[T any](key func(T) string, next, out []T) int {
	for _, n := range next {
		if i := indexOf(key, out, key(n)); i >= 0 {
			return i
		}
	}
	return -1
}
