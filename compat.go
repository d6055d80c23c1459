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
	"fmt"
	"reflect"
)

// This file implements ยง4.7's compatible mode: a legacy field-by-field
// encoding that tolerates fields being added or removed between the
// version that wrote a stream and the version reading it. Every field
// entry is self-describing -- a name, a wire-kind byte, then a payload
// whose shape follows only from that wire-kind byte -- so a field the
// current type no longer has can still be skipped correctly instead of
// corrupting the rest of the read.
//
// Compatible mode always resolves reference-typed fields through the
// OBJECT/ARRAY/ENUM tags (by passing a nil field context into
// writeValue/readValue) rather than the default mode's cheaper TYPED
// tag, because TYPED omits the class name entirely and so cannot be
// skipped by a reader that no longer has the field.

type compatWireKind byte

const (
	compatBool compatWireKind = iota
	compatInt32
	compatInt64
	compatFloat32
	compatFloat64
	compatString
	compatDynamic
)

// writeCompatible writes target's struct hash (a fast-reject signal
// checked only when the reading Configuration opts into
// WithHashVerification), then one field entry per field across every
// CompatLevel, root-first.
func (w *Writer) writeCompatible(target reflect.Value, desc *ClassDescriptor) error {
	w.buf.WriteVarInt32(desc.Hash)
	w.buf.WriteVarInt32(int32(len(desc.Compat)))
	for _, level := range desc.Compat {
		w.buf.WriteVarInt32(int32(len(level.Fields)))
		for _, fd := range level.Fields {
			w.buf.WriteStringUTF(fd.Name)
			fv := target.FieldByIndex(fd.Index)
			if err := w.writeCompatField(fv, fd); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Writer) writeCompatField(fv reflect.Value, fd *FieldDescriptor) error {
	switch {
	case fd.IsIntegral() && fv.Kind() == reflect.Bool:
		w.buf.WriteByte_(byte(compatBool))
		if fv.Bool() {
			w.buf.WriteByte_(1)
		} else {
			w.buf.WriteByte_(0)
		}
		return nil
	case fd.IsIntegral() && (fv.Kind() == reflect.Float32 || fv.Kind() == reflect.Float64):
		if fv.Kind() == reflect.Float32 {
			w.buf.WriteByte_(byte(compatFloat32))
			w.buf.WriteFFloat32(float32(fv.Float()))
		} else {
			w.buf.WriteByte_(byte(compatFloat64))
			w.buf.WriteFFloat64(fv.Float())
		}
		return nil
	case fd.IsIntegral() && (fv.Kind() == reflect.Int64 || fv.Kind() == reflect.Uint64):
		w.buf.WriteByte_(byte(compatInt64))
		w.buf.WriteVarInt64(elemInt(fv))
		return nil
	case fd.IsIntegral():
		w.buf.WriteByte_(byte(compatInt32))
		w.buf.WriteVarInt32(int32(elemInt(fv)))
		return nil
	case fv.Kind() == reflect.String:
		w.buf.WriteByte_(byte(compatString))
		w.buf.WriteStringUTF(fv.String())
		return nil
	default:
		w.buf.WriteByte_(byte(compatDynamic))
		return w.writeValue(fv, nil)
	}
}

// readCompatible is writeCompatible's mirror: it matches incoming field
// entries to the current type's fields by name (searched across every
// level, since a field may have moved between embedding depths across
// versions) and skips any entry with no current match.
func (r *Reader) readCompatible(target reflect.Value, desc *ClassDescriptor) error {
	hash := r.buf.ReadVarInt32()
	if r.cfg.verifyStructHash && hash != desc.Hash {
		return fmt.Errorf("fst: stream struct hash %d does not match current type's %d: %w", hash, desc.Hash, ErrUnknownClass)
	}
	byName := make(map[string]*FieldDescriptor)
	for _, level := range desc.Compat {
		for _, fd := range level.Fields {
			byName[fd.Name] = fd
		}
	}
	levelCount := int(r.buf.ReadVarInt32())
	for l := 0; l < levelCount; l++ {
		n := int(r.buf.ReadVarInt32())
		for i := 0; i < n; i++ {
			name := r.buf.ReadStringUTF()
			fd, ok := byName[name]
			if !ok {
				if err := r.skipCompatField(); err != nil {
					return err
				}
				continue
			}
			fv := target.FieldByIndex(fd.Index)
			if err := r.readCompatField(fv, fd); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Reader) readCompatField(fv reflect.Value, fd *FieldDescriptor) error {
	kind := compatWireKind(r.buf.ReadByte_())
	switch kind {
	case compatBool:
		fv.SetBool(r.buf.ReadByte_() != 0)
		return nil
	case compatInt32:
		setElemInt(fv, int64(r.buf.ReadVarInt32()))
		return nil
	case compatInt64:
		setElemInt(fv, r.buf.ReadVarInt64())
		return nil
	case compatFloat32:
		fv.SetFloat(float64(r.buf.ReadFFloat32()))
		return nil
	case compatFloat64:
		fv.SetFloat(r.buf.ReadFFloat64())
		return nil
	case compatString:
		fv.SetString(r.buf.ReadStringUTF())
		return nil
	default: // compatDynamic
		val, err := r.readValue(fv.Type(), nil)
		if err != nil {
			return err
		}
		if val.IsValid() {
			fv.Set(val)
		}
		return nil
	}
}

// skipCompatField discards one field entry whose name has no match in
// the current type, without disturbing the cursor for anything after
// it.
func (r *Reader) skipCompatField() error {
	kind := compatWireKind(r.buf.ReadByte_())
	switch kind {
	case compatBool:
		r.buf.ReadByte_()
	case compatInt32:
		r.buf.ReadVarInt32()
	case compatInt64:
		r.buf.ReadVarInt64()
	case compatFloat32:
		r.buf.ReadFFloat32()
	case compatFloat64:
		r.buf.ReadFFloat64()
	case compatString:
		r.buf.ReadStringUTF()
	default: // compatDynamic, self-describing via its own tag
		if _, err := r.readValue(nil, nil); err != nil {
			return err
		}
	}
	return nil
}
