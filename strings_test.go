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

func TestStringUTFRoundTrip(t *testing.T) {
	for _, s := range []string{"", "hello", "café", "中文", string(rune(300))} {
		b := NewByteBuffer(nil)
		b.WriteStringUTF(s)
		require.Equal(t, s, b.ReadStringUTF())
	}
}

func TestStringCompressedRoundTrip(t *testing.T) {
	for _, s := range []string{"", "ABCDEF0123456789", "mixed123AND-text!", "中文digits123"} {
		b := NewByteBuffer(nil)
		b.WriteStringCompressed(s)
		require.Equal(t, s, b.ReadStringCompressed())
	}
}

func TestStringCompressedSmallerForNibbleHeavyContent(t *testing.T) {
	s := "0123456789ABCDEF0123456789ABCDEF"
	b := NewByteBuffer(nil)
	b.WriteStringCompressed(s)
	compressedLen := b.WriterIndex()

	b2 := NewByteBuffer(nil)
	b2.WriteStringUTF(s)
	utfLen := b2.WriterIndex()

	require.Less(t, compressedLen, utfLen)
}
