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

type classRegistryFixtureA struct {
	X int32
}

type classRegistryFixtureB struct {
	Y string
}

func TestClassNameRegistryFirstUseWritesName(t *testing.T) {
	RegisterType(classRegistryFixtureA{})
	w := NewClassNameRegistry()
	buf := NewByteBuffer(nil)
	w.Encode(buf, reflect.TypeOf(classRegistryFixtureA{}))

	r := NewClassNameRegistry()
	resolved, err := r.Decode(buf)
	require.NoError(t, err)
	require.Equal(t, reflect.TypeOf(classRegistryFixtureA{}), resolved)
}

func TestClassNameRegistrySecondUseIsJustACode(t *testing.T) {
	RegisterType(classRegistryFixtureB{})
	w := NewClassNameRegistry()
	buf := NewByteBuffer(nil)
	t1 := reflect.TypeOf(classRegistryFixtureB{})
	w.Encode(buf, t1)
	firstLen := buf.WriterIndex()
	w.Encode(buf, t1)
	secondCallBytes := buf.WriterIndex() - firstLen

	require.LessOrEqual(t, secondCallBytes, 1)
}

func TestClassNameRegistryResetDropsDynamicClasses(t *testing.T) {
	RegisterType(classRegistryFixtureA{})
	r := NewClassNameRegistry()
	buf := NewByteBuffer(nil)
	r.Encode(buf, reflect.TypeOf(classRegistryFixtureA{}))
	_, ok := r.codeOf[reflect.TypeOf(classRegistryFixtureA{})]
	require.True(t, ok)

	r.Reset()
	_, ok = r.codeOf[reflect.TypeOf(classRegistryFixtureA{})]
	require.False(t, ok)
}

func TestClassNameRegistryUnknownCodeErrors(t *testing.T) {
	r := NewClassNameRegistry()
	buf := NewByteBuffer(nil)
	buf.WriteVarInt32(999)
	_, err := r.Decode(buf)
	require.ErrorIs(t, err, ErrUnknownClass)
}
