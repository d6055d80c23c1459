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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteBufferWriteReadByte(t *testing.T) {
	b := NewByteBuffer(nil)
	b.WriteByte_(7)
	b.WriteByte_(255)
	require.Equal(t, 2, b.WriterIndex())
	require.Equal(t, byte(7), b.ReadByte_())
	require.Equal(t, byte(255), b.ReadByte_())
	require.Equal(t, 2, b.ReaderIndex())
}

func TestByteBufferReadPastEndPanics(t *testing.T) {
	b := NewByteBuffer(nil)
	require.Panics(t, func() { b.ReadByte_() })
}

func TestByteBufferGrowPreservesContent(t *testing.T) {
	b := NewByteBuffer(nil)
	for i := 0; i < 100; i++ {
		b.WriteByte_(byte(i))
	}
	require.Equal(t, 100, b.WriterIndex())
	for i := 0; i < 100; i++ {
		require.Equal(t, byte(i), b.ReadByte_())
	}
}

func TestByteBufferPushPop(t *testing.T) {
	b := NewByteBuffer([]byte{1, 2, 3, 4, 5})
	require.Equal(t, byte(1), b.ReadByte_())
	sub := []byte{9, 8, 7}
	b.Push(sub, 0, len(sub))
	require.Equal(t, byte(9), b.ReadByte_())
	b.Pop()
	require.Equal(t, byte(2), b.ReadByte_())
}

func TestByteBufferPutInt32At(t *testing.T) {
	b := NewByteBuffer(nil)
	slot := b.WriterIndex()
	b.WriteFInt32(0)
	b.WriteByte_(42)
	b.PutInt32At(slot, 1234)
	require.Equal(t, int32(1234), b.ReadFInt32())
	require.Equal(t, byte(42), b.ReadByte_())
}

func TestByteBufferFixedWidthRoundTrip(t *testing.T) {
	b := NewByteBuffer(nil)
	b.WriteFInt16(-1234)
	b.WriteFInt32(-123456789)
	b.WriteFInt64(-123456789012345)
	b.WriteFFloat32(3.5)
	b.WriteFFloat64(-2.25)

	require.Equal(t, int16(-1234), b.ReadFInt16())
	require.Equal(t, int32(-123456789), b.ReadFInt32())
	require.Equal(t, int64(-123456789012345), b.ReadFInt64())
	require.Equal(t, float32(3.5), b.ReadFFloat32())
	require.Equal(t, float64(-2.25), b.ReadFFloat64())
}
