// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fst

import "reflect"

// RefRegistry implements ยง4.3: a per-stream, per-direction mapping
// between object identity and stream position. On write it maps a
// pointer identity to the position at which the object was first
// written; on read it maps a position to the instance produced there,
// so a later HANDLE resolves to the identical instance.
//
// Per the design note in spec.md ยง9, the registry must not extend an
// object's lifetime beyond the encode/decode call: entries are cleared
// en masse by Reset, and on write the map key is the pointer's raw
// address (an identity-hashed map), not the reflect.Value itself.
type RefRegistry struct {
	writeIdx map[uintptr]int
	readIdx  map[int]reflect.Value
}

// NewRefRegistry creates an empty registry.
func NewRefRegistry() *RefRegistry {
	return &RefRegistry{
		writeIdx: make(map[uintptr]int),
		readIdx:  make(map[int]reflect.Value),
	}
}

// Reset clears both directions for reuse across streams.
func (r *RefRegistry) Reset() {
	for k := range r.writeIdx {
		delete(r.writeIdx, k)
	}
	for k := range r.readIdx {
		delete(r.readIdx, k)
	}
}

// identity returns the address identifying v's referent and whether v
// is a kind that can carry object identity at all. Value kinds (structs
// passed by value, primitives, strings) never carry identity; only
// pointers, maps, channels, funcs and slices (by backing array address)
// do. A nil value of a reference kind has no identity either -- nil
// never needs deduplication, it's always encoded as TagNull.
func identity(v reflect.Value) (uintptr, bool) {
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if v.IsNil() {
			return 0, false
		}
		return v.Pointer(), true
	case reflect.Slice:
		if v.IsNil() || v.Len() == 0 {
			return 0, false
		}
		return v.Pointer(), true
	default:
		return 0, false
	}
}

// Lookup returns the position at which v was previously registered for
// writing, if any.
func (r *RefRegistry) Lookup(v reflect.Value) (pos int, ok bool) {
	id, has := identity(v)
	if !has {
		return 0, false
	}
	pos, ok = r.writeIdx[id]
	return pos, ok
}

// Register records that v's body starts being written at pos. Called
// before the body so that a self-referential cycle inside v closes
// correctly (ยง3 invariant). A no-op if v carries no identity.
func (r *RefRegistry) Register(v reflect.Value, pos int) {
	if id, ok := identity(v); ok {
		r.writeIdx[id] = pos
	}
}

// RegisterRead records that the instance at pos, produced on read, is
// v. Called after instantiation but before field-fill, for the same
// cycle-closing reason as Register.
func (r *RefRegistry) RegisterRead(pos int, v reflect.Value) {
	r.readIdx[pos] = v
}

// GetRead returns the instance previously registered for reading at
// pos.
func (r *RefRegistry) GetRead(pos int) (reflect.Value, bool) {
	v, ok := r.readIdx[pos]
	return v, ok
}

// Replace atomically substitutes new for the instance registered at
// pos, used when a class's read-resolve hook returns a replacement
// object. Later handles to pos resolve to new from this point on.
func (r *RefRegistry) Replace(pos int, new reflect.Value) {
	r.readIdx[pos] = new
}
