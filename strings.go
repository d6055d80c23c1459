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

// This file implements ยง4.1's two string forms: the UTF form (a simple
// length-prefixed per-character encoding) and the compressed form (adds
// a nibble-packed run for characters drawn from a 16-symbol alphabet).

// nibbleAlphabet is the 16-character set the compressed string form can
// pack two-to-a-byte: decimal digits plus the hex letters, matching the
// "encoding digits 0-9A-F" example in ยง4.1.
const nibbleAlphabet = "0123456789ABCDEF"

var nibbleIndex [256]int8

func init() {
	for i := range nibbleIndex {
		nibbleIndex[i] = -1
	}
	for i, c := range nibbleAlphabet {
		nibbleIndex[byte(c)] = int8(i)
	}
}

// WriteStringUTF writes s using the UTF string form: a varint length
// prefix, then one byte per rune in 0..254, or a 255 sentinel followed
// by 2 big-endian bytes for runes outside that range.
func (b *ByteBuffer) WriteStringUTF(s string) {
	runes := []rune(s)
	b.WriteVarInt32(int32(len(runes)))
	for _, r := range runes {
		if r >= 0 && r <= 254 {
			b.WriteByte_(byte(r))
			continue
		}
		b.WriteByte_(255)
		b.WriteFInt16(int16(uint16(r)))
	}
}

// ReadStringUTF reads a string written by WriteStringUTF.
func (b *ByteBuffer) ReadStringUTF() string {
	n := int(b.ReadVarInt32())
	runes := make([]rune, n)
	for i := 0; i < n; i++ {
		head := b.ReadByte_()
		if head < 255 {
			runes[i] = rune(head)
			continue
		}
		runes[i] = rune(uint16(b.ReadFInt16()))
	}
	return string(runes)
}

// WriteStringCompressed writes s using the compressed form: a varint
// length prefix, then a sequence of:
//
//   - a literal byte, for any rune in 0..253;
//   - a 254 marker followed by a count byte N and ceil(N/2) bytes, for a
//     maximal run of runes all drawn from nibbleAlphabet;
//   - a 255 marker followed by 2 big-endian bytes, for any other rune.
func (b *ByteBuffer) WriteStringCompressed(s string) {
	runes := []rune(s)
	b.WriteVarInt32(int32(len(runes)))
	i := 0
	for i < len(runes) {
		if isNibbleChar(runes[i]) {
			j := i
			for j < len(runes) && isNibbleChar(runes[j]) {
				j++
			}
			b.writeNibbleRun(runes[i:j])
			i = j
			continue
		}
		r := runes[i]
		switch {
		case r >= 0 && r <= 253:
			b.WriteByte_(byte(r))
		default:
			b.WriteByte_(255)
			b.WriteFInt16(int16(uint16(r)))
		}
		i++
	}
}

func isNibbleChar(r rune) bool {
	return r >= 0 && r < 256 && nibbleIndex[byte(r)] >= 0
}

func (b *ByteBuffer) writeNibbleRun(run []rune) {
	b.WriteByte_(254)
	b.WriteByte_(byte(len(run)))
	for i := 0; i < len(run); i += 2 {
		lo := byte(nibbleIndex[byte(run[i])])
		var hi byte
		if i+1 < len(run) {
			hi = byte(nibbleIndex[byte(run[i+1])])
		}
		b.WriteByte_(lo | (hi << 4))
	}
}

// ReadStringCompressed reads a string written by WriteStringCompressed.
func (b *ByteBuffer) ReadStringCompressed() string {
	n := int(b.ReadVarInt32())
	runes := make([]rune, 0, n)
	for len(runes) < n {
		head := b.ReadByte_()
		switch {
		case head < 254:
			runes = append(runes, rune(head))
		case head == 254:
			count := int(b.ReadByte_())
			for k := 0; k < count; k += 2 {
				v := b.ReadByte_()
				runes = append(runes, rune(nibbleAlphabet[v&0xf]))
				if k+1 < count {
					runes = append(runes, rune(nibbleAlphabet[(v>>4)&0xf]))
				}
			}
		default: // 255
			runes = append(runes, rune(uint16(b.ReadFInt16())))
		}
	}
	return string(runes)
}
