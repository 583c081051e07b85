package checklist

import "fmt"

// Index returns the position of id in items, or -1.
func Index(items []Item, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// Find returns the item with the given id.
func Find(items []Item, id string) (Item, bool) {
	if i := Index(items, id); i >= 0 {
		return items[i], true
	}
	return Item{}, false
}

// Update applies fn to the item with the given id and returns a new slice.
// The input slice is never modified, so a failed update leaves the caller's
// collection intact.
func Update(items []Item, id string, fn func(Item) (Item, error)) ([]Item, error) {
	i := Index(items, id)
	if i < 0 {
		return items, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next, err := fn(items[i])
	if err != nil {
		return items, err
	}
	out := Clone(items)
	out[i] = next
	return out, nil
}

// Remove returns a new slice without the item with the given id.
func Remove(items []Item, id string) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

// Clone returns a shallow copy of items. Items are values, so the copy can
// be modified freely.
func Clone(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// Filter returns the items whose status is one of statuses.
func Filter(items []Item, statuses ...Status) []Item {
	var out []Item
	for _, it := range items {
		for _, s := range statuses {
			if it.Status() == s {
				out = append(out, it)
				break
			}
		}
	}
	return out
}
