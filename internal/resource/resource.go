// Package resource defines the server-backed collections tracked by the store
// and the render-mode selection every list component shares.
package resource

import "fmt"

// Name identifies a server-backed collection.
type Name string

const (
	Headlines   Name = "headlines"
	Banners     Name = "banners"
	Collections Name = "collections"
	Products    Name = "products"
	Reels       Name = "reels"
	CartItems   Name = "cartItems"
)

// All lists every resource in a stable order.
var All = []Name{Headlines, Banners, Collections, Products, Reels, CartItems}

// Parse maps a resource name from a URL or config onto a Name.
func Parse(s string) (Name, error) {
	for _, n := range All {
		if string(n) == s {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown resource %q", s)
}

// Status is the lifecycle position of a resource.
type Status int

const (
	Idle Status = iota
	Loading
	Loaded
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// State is the loading/error/data triple of one resource.
// Items keeps the last successfully loaded value when Status is Failed.
type State[T any] struct {
	Items  []T
	Status Status
	Err    error
}

// Len is the number of items currently held.
func (s State[T]) Len() int {
	return len(s.Items)
}

// Mode is the render mode for this state.
func (s State[T]) Mode() RenderMode {
	return SelectRenderMode(s.Status, len(s.Items))
}

// RenderMode is the variant a list component renders.
type RenderMode int

const (
	ModeLoading RenderMode = iota
	ModeEmpty
	ModePopulated
)

func (m RenderMode) String() string {
	switch m {
	case ModeLoading:
		return "loading"
	case ModeEmpty:
		return "empty"
	case ModePopulated:
		return "populated"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// SelectRenderMode picks exactly one render mode from status and item count.
// Loading wins over any items held; otherwise no items means empty. Failed
// resources with stale items stay populated: errors are not a render mode.
func SelectRenderMode(status Status, itemCount int) RenderMode {
	if status == Loading {
		return ModeLoading
	}
	if itemCount == 0 {
		return ModeEmpty
	}
	return ModePopulated
}
