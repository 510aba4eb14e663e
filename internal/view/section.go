// Package view turns store snapshots into page models and renders them as HTML.
package view

import (
	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/resource"
)

// Placeholder counts match the number of cells each component shows once loaded.
const (
	BannerPlaceholders     = 1
	HeadlinePlaceholders   = 1
	CollectionPlaceholders = 6
	ProductPlaceholders    = 8
	ReelPlaceholders       = 4
	CartPlaceholders       = 2
)

// Section is one list component in exactly one render mode.
// Cells are only filled when Mode is ModePopulated.
type Section[C any] struct {
	Mode         resource.RenderMode
	Cells        []C
	Placeholders int
	EmptyMessage string
	// Notice is set when the cells are left over from before a failed refresh.
	Notice string
}

func (s Section[C]) Loading() bool   { return s.Mode == resource.ModeLoading }
func (s Section[C]) Empty() bool     { return s.Mode == resource.ModeEmpty }
func (s Section[C]) Populated() bool { return s.Mode == resource.ModePopulated }

// BuildSection selects the render mode for state and maps items to cells in order.
func BuildSection[T, C any](state resource.State[T], placeholders int, emptyMessage string, mapFn func(T) C) Section[C] {
	sec := Section[C]{
		Mode:         resource.SelectRenderMode(state.Status, len(state.Items)),
		Placeholders: placeholders,
		EmptyMessage: emptyMessage,
	}
	if sec.Mode != resource.ModePopulated {
		return sec
	}
	sec.Cells = make([]C, 0, len(state.Items))
	for _, item := range state.Items {
		sec.Cells = append(sec.Cells, mapFn(item))
	}
	if state.Status == resource.Failed && state.Err != nil {
		sec.Notice = storeerrors.Message(state.Err)
	}
	return sec
}
