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

// Serializer is the plugin interface named in spec.md ยง6: a type may
// take over its own wire encoding entirely, bypassing the default
// field-reader loop. Instantiate is called before ReadObject so cyclic
// references into the object being built can be registered early, the
// same as the default path's register-before-fill ordering.
type Serializer interface {
	WriteObject(w *Writer, v reflect.Value) error
	ReadObject(r *Reader, v reflect.Value) error
	Instantiate(t reflect.Type) reflect.Value
	AlwaysCopy() bool
}

// PluginTable is a class-identity-keyed table of custom Serializers,
// with an optional delegate consulted for classes that have no
// registration of their own (spec.md ยง9's "unregistered class falls
// through to a configured delegate, or the default path if none is
// set").
type PluginTable struct {
	byType   map[reflect.Type]Serializer
	delegate Serializer
}

// NewPluginTable creates an empty plugin table.
func NewPluginTable() *PluginTable {
	return &PluginTable{byType: make(map[reflect.Type]Serializer)}
}

// Register installs s as the Serializer for t.
func (p *PluginTable) Register(t reflect.Type, s Serializer) {
	p.byType[t] = s
}

// SetDelegate installs the fallback Serializer consulted for classes
// with no specific registration. A nil delegate (the default) means
// unregistered classes use the package's default field-reader/writer
// path instead of any custom Serializer.
func (p *PluginTable) SetDelegate(s Serializer) {
	p.delegate = s
}

// Lookup returns the Serializer to use for t, if any.
func (p *PluginTable) Lookup(t reflect.Type) (Serializer, bool) {
	if s, ok := p.byType[t]; ok {
		return s, true
	}
	if p.delegate != nil {
		return p.delegate, true
	}
	return nil, false
}
