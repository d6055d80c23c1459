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

// elemType resolves an example value (possibly a pointer, possibly a
// nil typed pointer used purely to name a type) down to the concrete
// struct/kind type it denotes.
func elemType(example interface{}) reflect.Type {
	t := reflect.TypeOf(example)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// elemTypeOf is elemType applied to a live value rather than a type
// witness, resolving through any number of pointer indirections.
func elemTypeOf(v interface{}) reflect.Type {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return rv.Type().Elem()
		}
		rv = rv.Elem()
	}
	return rv.Type()
}
