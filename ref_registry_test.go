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

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRefRegistryWriteLookup(t *testing.T) {
	type node struct{ V int }
	n := &node{V: 1}
	rv := reflect.ValueOf(n)

	r := NewRefRegistry()
	_, ok := r.Lookup(rv)
	require.False(t, ok)

	r.Register(rv, 42)
	pos, ok := r.Lookup(rv)
	require.True(t, ok)
	require.Equal(t, 42, pos)
}

func TestRefRegistryStructValueHasNoIdentity(t *testing.T) {
	type node struct{ V int }
	n := node{V: 1}
	rv := reflect.ValueOf(n)

	r := NewRefRegistry()
	r.Register(rv, 7)
	_, ok := r.Lookup(rv)
	require.False(t, ok)
}

func TestRefRegistryReadRegisterAndReplace(t *testing.T) {
	r := NewRefRegistry()
	v := reflect.ValueOf(10)
	r.RegisterRead(5, v)

	got, ok := r.GetRead(5)
	require.True(t, ok)
	require.Equal(t, 10, int(got.Int()))

	r.Replace(5, reflect.ValueOf(20))
	got, ok = r.GetRead(5)
	require.True(t, ok)
	require.Equal(t, 20, int(got.Int()))
}

func TestRefRegistryReset(t *testing.T) {
	type node struct{ V int }
	n := &node{V: 1}
	r := NewRefRegistry()
	r.Register(reflect.ValueOf(n), 1)
	r.RegisterRead(1, reflect.ValueOf(n))
	r.Reset()

	_, ok := r.Lookup(reflect.ValueOf(n))
	require.False(t, ok)
	_, ok = r.GetRead(1)
	require.False(t, ok)
}
