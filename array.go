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

// arrayStrategy is the one-byte discriminator written right after a
// TagArray's element class code and length, selecting how the element
// payload itself is packed (ยง4.6). Reference-element arrays never carry
// one: their elements always go through the normal writeValue dispatch.
type arrayStrategy byte

const (
	arrayPlain      arrayStrategy = iota // fixed-width element per slot
	arrayDefault                         // varint per element
	arrayCompressed                      // sub-strategy byte, see below
	arrayThin                            // sparse (index, value) pairs
)

// compressed sub-strategies (ยง4.6's "compressed" discriminator).
const (
	compressedDeltaRun  byte = iota // first element literal, rest varint deltas
	compressedVarintRun             // identical to arrayDefault, nested for symmetry
	compressedThinPairs             // identical to arrayThin, nested for symmetry
	compressedOffsetShort // first element literal, rest as CShort deltas
)

func isPrimitiveElemKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.Int8, reflect.Uint8, reflect.Int16, reflect.Uint16,
		reflect.Int32, reflect.Uint32, reflect.Int64, reflect.Uint64, reflect.Int, reflect.Uint,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// writeArray implements TagArray's body: the element class, the length,
// and the element payload (ยง4.6).
func (w *Writer) writeArray(rv reflect.Value, fd *FieldDescriptor) error {
	elemType := rv.Type().Elem()
	w.classes.Encode(w.buf, elemType)
	n := rv.Len()
	w.buf.WriteVarInt32(int32(n))

	if !isPrimitiveElemKind(elemType.Kind()) {
		elemFD := &FieldDescriptor{Name: "[elem]", Type: elemType}
		for i := 0; i < n; i++ {
			if err := w.writeValue(rv.Index(i), elemFD); err != nil {
				return err
			}
		}
		return nil
	}

	strategy := chooseArrayStrategy(fd, rv, n, w.cfg.ignoreAnnotations)
	w.buf.WriteByte_(byte(strategy))
	switch strategy {
	case arrayPlain:
		for i := 0; i < n; i++ {
			writePlainElem(w.buf, rv.Index(i))
		}
	case arrayDefault:
		for i := 0; i < n; i++ {
			writeVarintElem(w.buf, rv.Index(i))
		}
	case arrayThin:
		writeThinElems(w.buf, rv, n)
	case arrayCompressed:
		writeCompressedElems(w.buf, rv, n)
	}
	return nil
}

// chooseArrayStrategy honors an explicit plain/thin/compressed field
// annotation; absent one, it defaults to the varint form, which is
// never worse than fixed width for the common case of small magnitudes.
func chooseArrayStrategy(fd *FieldDescriptor, rv reflect.Value, n int, ignoreAnnotations bool) arrayStrategy {
	switch {
	case fd != nil && effectivePlain(ignoreAnnotations, fd):
		return arrayPlain
	case fd != nil && effectiveThin(ignoreAnnotations, fd):
		return arrayThin
	case fd != nil && effectiveCompressed(ignoreAnnotations, fd):
		return arrayCompressed
	default:
		return arrayDefault
	}
}

func elemInt(v reflect.Value) int64 {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return 1
		}
		return 0
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return int64(v.Uint())
	default:
		return v.Int()
	}
}

func setElemInt(v reflect.Value, n int64) {
	switch v.Kind() {
	case reflect.Bool:
		v.SetBool(n != 0)
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		v.SetUint(uint64(n))
	default:
		v.SetInt(n)
	}
}

func writePlainElem(buf *ByteBuffer, v reflect.Value) {
	switch v.Kind() {
	case reflect.Float32:
		buf.WriteFFloat32(float32(v.Float()))
	case reflect.Float64:
		buf.WriteFFloat64(v.Float())
	case reflect.Int8, reflect.Uint8, reflect.Bool:
		buf.WriteFByte(int8(elemInt(v)))
	case reflect.Int16, reflect.Uint16:
		buf.WriteFInt16(int16(elemInt(v)))
	case reflect.Int64, reflect.Uint64:
		buf.WriteFInt64(elemInt(v))
	default:
		buf.WriteFInt32(int32(elemInt(v)))
	}
}

func readPlainElem(buf *ByteBuffer, v reflect.Value) {
	switch v.Kind() {
	case reflect.Float32:
		v.SetFloat(float64(buf.ReadFFloat32()))
	case reflect.Float64:
		v.SetFloat(buf.ReadFFloat64())
	case reflect.Int8, reflect.Uint8, reflect.Bool:
		setElemInt(v, int64(buf.ReadFByte()))
	case reflect.Int16, reflect.Uint16:
		setElemInt(v, int64(buf.ReadFInt16()))
	case reflect.Int64, reflect.Uint64:
		setElemInt(v, buf.ReadFInt64())
	default:
		setElemInt(v, int64(buf.ReadFInt32()))
	}
}

func writeVarintElem(buf *ByteBuffer, v reflect.Value) {
	switch v.Kind() {
	case reflect.Float32:
		buf.WriteFFloat32(float32(v.Float()))
	case reflect.Float64:
		buf.WriteFFloat64(v.Float())
	case reflect.Int64, reflect.Uint64:
		buf.WriteVarInt64(elemInt(v))
	default:
		buf.WriteVarInt32(int32(elemInt(v)))
	}
}

func readVarintElem(buf *ByteBuffer, v reflect.Value) {
	switch v.Kind() {
	case reflect.Float32:
		v.SetFloat(float64(buf.ReadFFloat32()))
	case reflect.Float64:
		v.SetFloat(buf.ReadFFloat64())
	case reflect.Int64, reflect.Uint64:
		setElemInt(v, buf.ReadVarInt64())
	default:
		setElemInt(v, int64(buf.ReadVarInt32()))
	}
}

// writeThinElems writes only the non-zero elements as (index, value)
// pairs, terminated by an index equal to the array length (ยง4.6's
// "thin" strategy, for mostly-zero arrays).
func writeThinElems(buf *ByteBuffer, rv reflect.Value, n int) {
	for i := 0; i < n; i++ {
		if elemInt(rv.Index(i)) == 0 {
			continue
		}
		buf.WriteVarInt32(int32(i))
		writeVarintElem(buf, rv.Index(i))
	}
	buf.WriteVarInt32(int32(n))
}

func readThinElems(buf *ByteBuffer, rv reflect.Value, n int) {
	for {
		idx := int(buf.ReadVarInt32())
		if idx == n {
			return
		}
		readVarintElem(buf, rv.Index(idx))
	}
}

// writeCompressedElems picks between a delta run (consecutive elements
// close together, e.g. sorted timestamps), the varint run (no better
// structure detected) and the thin pairs form (mostly zero), matching
// ยง4.6's compressed sub-strategy set.
func writeCompressedElems(buf *ByteBuffer, rv reflect.Value, n int) {
	zero := 0
	for i := 0; i < n; i++ {
		if elemInt(rv.Index(i)) == 0 {
			zero++
		}
	}
	if n > 0 && zero*2 >= n {
		buf.WriteByte_(compressedThinPairs)
		writeThinElems(buf, rv, n)
		return
	}
	if isMonotonicSmallDelta(rv, n) {
		buf.WriteByte_(compressedDeltaRun)
		if n > 0 {
			writeVarintElem(buf, rv.Index(0))
			prev := elemInt(rv.Index(0))
			for i := 1; i < n; i++ {
				cur := elemInt(rv.Index(i))
				buf.WriteVarInt64(cur - prev)
				prev = cur
			}
		}
		return
	}
	buf.WriteByte_(compressedVarintRun)
	for i := 0; i < n; i++ {
		writeVarintElem(buf, rv.Index(i))
	}
}

func readCompressedElems(buf *ByteBuffer, rv reflect.Value, n int) {
	sub := buf.ReadByte_()
	switch sub {
	case compressedThinPairs:
		readThinElems(buf, rv, n)
	case compressedDeltaRun:
		if n == 0 {
			return
		}
		readVarintElem(buf, rv.Index(0))
		prev := elemInt(rv.Index(0))
		for i := 1; i < n; i++ {
			prev += buf.ReadVarInt64()
			setElemInt(rv.Index(i), prev)
		}
	case compressedOffsetShort:
		if n == 0 {
			return
		}
		readVarintElem(buf, rv.Index(0))
		base := elemInt(rv.Index(0))
		for i := 1; i < n; i++ {
			setElemInt(rv.Index(i), base+int64(buf.ReadCShort()))
		}
	default: // compressedVarintRun
		for i := 0; i < n; i++ {
			readVarintElem(buf, rv.Index(i))
		}
	}
}

// isMonotonicSmallDelta reports whether consecutive elements differ by
// an amount that fits comfortably in a single-byte varint, making a
// delta run smaller than a plain varint run.
func isMonotonicSmallDelta(rv reflect.Value, n int) bool {
	if n < 2 {
		return false
	}
	prev := elemInt(rv.Index(0))
	for i := 1; i < n; i++ {
		cur := elemInt(rv.Index(i))
		d := cur - prev
		if d < -126 || d > 127 {
			return false
		}
		prev = cur
	}
	return true
}

// readArrayBody implements the Reader side of writeArray: it resolves
// the element class from the stream, allocates a slice of length n,
// registers it for future handles at posAtEntry (mirroring
// Writer.writeValue's ARRAY registration point, right after the tag),
// and fills it per the chosen strategy.
func (r *Reader) readArrayBody(fd *FieldDescriptor, posAtEntry int) (reflect.Value, error) {
	elemType, err := r.classes.Decode(r.buf)
	if err != nil {
		return reflect.Value{}, err
	}
	n := int(r.buf.ReadVarInt32())
	sliceType := reflect.SliceOf(elemType)
	rv := reflect.MakeSlice(sliceType, n, n)
	if !r.cfg.structMode {
		r.refs.RegisterRead(posAtEntry, rv)
	}

	if !isPrimitiveElemKind(elemType.Kind()) {
		elemFD := &FieldDescriptor{Name: "[elem]", Type: elemType}
		for i := 0; i < n; i++ {
			ev, err := r.readValue(elemType, elemFD)
			if err != nil {
				return reflect.Value{}, err
			}
			if ev.IsValid() {
				rv.Index(i).Set(ev)
			}
		}
		return rv, nil
	}

	strategy := arrayStrategy(r.buf.ReadByte_())
	switch strategy {
	case arrayPlain:
		for i := 0; i < n; i++ {
			readPlainElem(r.buf, rv.Index(i))
		}
	case arrayDefault:
		for i := 0; i < n; i++ {
			readVarintElem(r.buf, rv.Index(i))
		}
	case arrayThin:
		readThinElems(r.buf, rv, n)
	case arrayCompressed:
		readCompressedElems(r.buf, rv, n)
	}
	return rv, nil
}
