package core

import (
	"reflect"

	"github.com/strandnet/strand/state"
)

// Get fetches a registered module by type.
func Get[T state.Module](s *state.State) T {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return s.Modules[t.String()].(T)
}
