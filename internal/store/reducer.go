package store

import (
	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/resource"
)

// The reducers below are the only code that produces a new resource.State.
// They never modify the Items slice they receive.

// FetchStarted marks a resource as loading. Items stay visible to readers of the old state.
func FetchStarted[T any](s resource.State[T]) resource.State[T] {
	return resource.State[T]{Items: s.Items, Status: resource.Loading, Err: s.Err}
}

// FetchSucceeded replaces the items with the response payload and clears the error.
func FetchSucceeded[T any](_ resource.State[T], items []T) resource.State[T] {
	if items == nil {
		items = []T{}
	}
	return resource.State[T]{Items: items, Status: resource.Loaded}
}

// FetchFailed records err and keeps the last good items.
func FetchFailed[T any](s resource.State[T], err error) resource.State[T] {
	return resource.State[T]{Items: s.Items, Status: resource.Failed, Err: err}
}

// FetchDiscarded drops a settled fetch nobody is watching any more and restores
// the status and error the resource had before it started.
func FetchDiscarded[T any](s resource.State[T], restore resource.Status, restoreErr error) resource.State[T] {
	return resource.State[T]{Items: s.Items, Status: restore, Err: restoreErr}
}

// Reset returns a resource to its initial idle state.
func Reset[T any](_ resource.State[T]) resource.State[T] {
	return resource.State[T]{Items: []T{}, Status: resource.Idle}
}

// LineUpserted replaces the line with the same ID, or appends it, and clears the cart error.
func LineUpserted(s resource.State[catalog.CartLine], line catalog.CartLine) resource.State[catalog.CartLine] {
	items := make([]catalog.CartLine, 0, len(s.Items)+1)
	replaced := false
	for _, l := range s.Items {
		if l.ID == line.ID {
			items = append(items, line)
			replaced = true
			continue
		}
		items = append(items, l)
	}
	if !replaced {
		items = append(items, line)
	}
	return resource.State[catalog.CartLine]{Items: items, Status: s.Status, Err: nil}
}

// LineRemoved drops the line with the given ID and clears the cart error.
func LineRemoved(s resource.State[catalog.CartLine], lineID catalog.ID) resource.State[catalog.CartLine] {
	items := make([]catalog.CartLine, 0, len(s.Items))
	for _, l := range s.Items {
		if l.ID != lineID {
			items = append(items, l)
		}
	}
	return resource.State[catalog.CartLine]{Items: items, Status: s.Status, Err: nil}
}

// CartMutationFailed records err on the cart without touching its lines or status.
func CartMutationFailed(s resource.State[catalog.CartLine], err error) resource.State[catalog.CartLine] {
	return resource.State[catalog.CartLine]{Items: s.Items, Status: s.Status, Err: err}
}
