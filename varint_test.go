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

func TestWriteVarInt32Widths(t *testing.T) {
	cases := []struct {
		v     int32
		width int8
	}{
		{0, 1}, {127, 1}, {-126, 1},
		{128, 3}, {-127, 3}, {32767, 3}, {-32768, 3},
		{32768, 5}, {-32769, 5}, {1 << 30, 5},
	}
	for _, c := range cases {
		b := NewByteBuffer(nil)
		n := b.WriteVarInt32(c.v)
		require.Equal(t, c.width, n, "value %d", c.v)
		require.Equal(t, c.v, b.ReadVarInt32(), "value %d", c.v)
	}
}

func TestWriteVarInt64Widths(t *testing.T) {
	cases := []struct {
		v     int64
		width int8
	}{
		{0, 1}, {127, 1}, {-125, 1},
		{128, 3}, {-126, 3}, {32767, 3},
		{32768, 5}, {-2147483648, 5}, {2147483647, 5},
		{1 << 40, 9}, {-(1 << 40), 9},
	}
	for _, c := range cases {
		b := NewByteBuffer(nil)
		n := b.WriteVarInt64(c.v)
		require.Equal(t, c.width, n, "value %d", c.v)
		require.Equal(t, c.v, b.ReadVarInt64(), "value %d", c.v)
	}
}

func TestCShortRoundTrip(t *testing.T) {
	for _, v := range []int16{0, 1, 254, 255, 256, 32767, -1, -32768} {
		b := NewByteBuffer(nil)
		b.WriteCShort(v)
		require.Equal(t, v, b.ReadCShort())
	}
}

func TestCCharRoundTrip(t *testing.T) {
	for _, r := range []rune{'a', 'Z', '0', 0x4e2d, 0xFFFF} {
		b := NewByteBuffer(nil)
		b.WriteCChar(r)
		require.Equal(t, r, b.ReadCChar())
	}
}
