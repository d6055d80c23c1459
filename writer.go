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

// Writer is the encode-side state machine: it owns the output buffer
// and the two per-stream registries (class names and object
// identities), and drives the tag-selection policy of ยง4.4/ยง4.5 for
// every value reachable from the top-level object.
type Writer struct {
	buf     *ByteBuffer
	cfg     *Configuration
	classes *ClassNameRegistry
	refs    *RefRegistry
}

// NewWriter creates a Writer over a fresh output buffer, borrowing its
// registries from cfg's pool (see Configuration.acquireRegistries).
func NewWriter(cfg *Configuration) *Writer {
	if cfg == nil {
		cfg = NewConfiguration()
	}
	rs := cfg.acquireRegistries()
	return &Writer{
		buf:     NewByteBuffer(nil),
		cfg:     cfg,
		classes: rs.classes,
		refs:    rs.refs,
	}
}

// Reset clears the Writer for reuse, matching the teacher's
// Reset-before-Put pooling idiom (see threadsafe/threadsafe.go).
func (w *Writer) Reset() {
	w.buf.Reset()
	w.classes.Reset()
	w.refs.Reset()
}

// release returns w's registries to cfg's pool. Called by
// Configuration.Marshal once a one-shot Writer is done with them; a
// Writer kept alive and reused directly (as threadsafe.Codec does) never
// calls this -- it keeps its registries for its own lifetime instead.
func (w *Writer) release() {
	w.cfg.releaseRegistries(&registrySet{classes: w.classes, refs: w.refs})
}

// pluginAlwaysCopy reports whether t has a registered Serializer that
// always produces a fresh copy on read, per Serializer.AlwaysCopy.
// Such instances must never be registered for HANDLE resolution (ยง4.5/
// ยง6): two decodes of the same position would otherwise be expected to
// share identity they were never given.
func (w *Writer) pluginAlwaysCopy(t reflect.Type) bool {
	if s, ok := w.cfg.plugins.Lookup(t); ok {
		return s.AlwaysCopy()
	}
	return false
}

// Bytes returns the encoded stream written so far.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// WriteObject encodes v as the stream's single top-level value.
func (w *Writer) WriteObject(v interface{}) (err error) {
	defer func() {
		if p := recover(); p != nil {
			if e, ok := p.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("fst: %v", p)
		}
	}()
	rv := reflect.ValueOf(v)
	return w.writeValue(rv, nil)
}

// writeValue is the tag-selection policy of ยง4.4: it picks exactly one
// of NULL, HANDLE, ONE_OF, the boxed BIG_* tags, ARRAY, ENUM, a
// prediction code, TYPED or OBJECT, in that priority order, and writes
// the tag plus its body. fd is the static field context the value was
// reached through, or nil at the top level and for compatible-mode
// dynamic fields; array elements pass a synthetic FieldDescriptor for
// the element type instead (see array.go).
func (w *Writer) writeValue(rv reflect.Value, fd *FieldDescriptor) error {
	for rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			w.buf.WriteByte_(byte(TagNull))
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		w.buf.WriteByte_(byte(TagNull))
		return nil
	}

	isPtr := rv.Kind() == reflect.Ptr
	if isPtr && rv.IsNil() {
		w.buf.WriteByte_(byte(TagNull))
		return nil
	}
	if (rv.Kind() == reflect.Map || rv.Kind() == reflect.Slice || rv.Kind() == reflect.Chan || rv.Kind() == reflect.Func) && rv.IsNil() {
		w.buf.WriteByte_(byte(TagNull))
		return nil
	}

	// Identity check: a pointer/map/chan/func/non-empty-slice value seen
	// before at this point writes a HANDLE instead of its body. Disabled
	// entirely in structMode (ยง8's "always copy" testable property).
	if !w.cfg.structMode {
		if pos, ok := w.refs.Lookup(rv); ok {
			w.buf.WriteByte_(byte(TagHandle))
			w.buf.WriteVarInt32(int32(pos))
			return nil
		}
	}

	target := rv
	if isPtr {
		target = rv.Elem()
	}

	// ONE_OF: the field's declared type is an enum-like site and the
	// concrete value's type matches it exactly (no polymorphism to
	// resolve), so only the index into the field's own constant set is
	// needed -- no class code at all.
	if fd != nil && fd.OneOf() != nil && target.Type() == fd.Type {
		if idx, ok := oneOfIndex(fd.OneOf(), target); ok {
			w.buf.WriteByte_(byte(TagOneOf))
			w.buf.WriteByte_(byte(idx))
			return nil
		}
	}

	// Boxed primitives: only reachable through an interface{}-typed site
	// (fd == nil, or fd.Type is itself an interface), matching Java's
	// autoboxed Object field. A registered enum type takes the ENUM tag
	// instead, even through an interface{} site -- boxing loses the
	// class identity an enum constant needs to round-trip.
	if (fd == nil || fd.Type.Kind() == reflect.Interface) && EnumConstantsOf(target.Type()) == nil {
		switch target.Kind() {
		case reflect.Bool:
			if target.Bool() {
				w.buf.WriteByte_(byte(TagBigBooleanTrue))
			} else {
				w.buf.WriteByte_(byte(TagBigBooleanFalse))
			}
			return nil
		case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint8, reflect.Uint16, reflect.Uint32:
			w.buf.WriteByte_(byte(TagBigInt))
			w.buf.WriteVarInt32(int32(elemInt(target)))
			return nil
		case reflect.Int64, reflect.Uint64, reflect.Int, reflect.Uint:
			w.buf.WriteByte_(byte(TagBigLong))
			w.buf.WriteVarInt64(elemInt(target))
			return nil
		}
	}

	if target.Kind() == reflect.String {
		// Strings carry no identity and need no class code, but still
		// open with a tag byte like every other value; TYPED is reused
		// since a string's concrete type is always its declared type.
		w.buf.WriteByte_(byte(TagTyped))
		return w.writeStringValue(target, fd)
	}

	if target.Kind() == reflect.Slice || target.Kind() == reflect.Array {
		w.buf.WriteByte_(byte(TagArray))
		if !w.cfg.structMode {
			w.refs.Register(rv, w.buf.WriterIndex())
		}
		return w.writeArray(target, fd)
	}

	var desc *ClassDescriptor
	var err error
	if fd != nil {
		desc, err = fd.resolve(w.cfg, target.Type())
	} else {
		desc, err = w.cfg.describeType(target.Type())
	}
	if err != nil {
		return err
	}

	if desc.EnumConstants != nil {
		w.buf.WriteByte_(byte(TagEnum))
		w.classes.Encode(w.buf, target.Type())
		if w.cfg.crossLanguage {
			w.buf.WriteStringUTF(enumConstantName(desc.EnumConstants, target))
		} else {
			w.buf.WriteVarInt64(elemInt(target))
		}
		return nil
	}

	canRegister := !desc.Flat && !w.cfg.structMode && !w.pluginAlwaysCopy(target.Type())

	if fd != nil {
		if tag, ok := fd.predictionCodeFor(target.Type()); ok {
			w.buf.WriteByte_(byte(tag))
			if canRegister {
				w.refs.Register(rv, w.buf.WriterIndex())
			}
			return w.writeBody(target, desc)
		}
	}

	if fd != nil && target.Type() == fd.Type {
		w.buf.WriteByte_(byte(TagTyped))
		if canRegister {
			w.refs.Register(rv, w.buf.WriterIndex())
		}
		return w.writeBody(target, desc)
	}

	w.buf.WriteByte_(byte(TagObject))
	w.classes.Encode(w.buf, target.Type())
	if canRegister {
		w.refs.Register(rv, w.buf.WriterIndex())
	}
	if fd != nil {
		fd.addPossible(target.Type())
	}
	return w.writeBody(target, desc)
}

func oneOfIndex(set []EnumConstant, v reflect.Value) (int, bool) {
	ord := elemInt(v)
	for i, c := range set {
		if c.Ordinal == ord {
			return i, true
		}
	}
	return 0, false
}

func enumConstantName(set []EnumConstant, v reflect.Value) string {
	ord := elemInt(v)
	for _, c := range set {
		if c.Ordinal == ord {
			return c.Name
		}
	}
	return ""
}

// writeStringValue picks the compressed or UTF string form per the
// field's `compressed` annotation (ยง4.1).
func (w *Writer) writeStringValue(v reflect.Value, fd *FieldDescriptor) error {
	s := v.String()
	if fd != nil && effectiveCompressed(w.cfg.ignoreAnnotations, fd) {
		w.buf.WriteStringCompressed(s)
	} else {
		w.buf.WriteStringUTF(s)
	}
	return nil
}

// writeBody writes a value's object body -- custom serializer,
// externalizable, compatible-mode, or the default field-reader loop --
// after the tag and any class code/handle registration has already been
// written by writeValue.
func (w *Writer) writeBody(target reflect.Value, desc *ClassDescriptor) error {
	if s, ok := w.cfg.plugins.Lookup(desc.Type); ok {
		return s.WriteObject(w, target)
	}
	if desc.Externalizable {
		ext := target.Addr().Interface().(Externalizable)
		return ext.WriteExternal(w)
	}
	if desc.CompatibleMode {
		return w.writeCompatible(target, desc)
	}
	return w.writeFields(target, desc.Fields)
}

// writeFields is ยง4.8's default field-by-field body: boolean fields
// pack 8-per-byte in contiguous runs, integral fields dispatch
// fixed/varint per their plain/conditional/default annotation, and a
// `conditional` field is wrapped in a skip group a reader can jump over
// without parsing its contents.
func (w *Writer) writeFields(target reflect.Value, fields []*FieldDescriptor) error {
	for i := 0; i < len(fields); {
		fd := fields[i]
		if fd.IsIntegral() && fd.Type.Kind() == reflect.Bool {
			j := i
			for j < len(fields) && fields[j].IsIntegral() && fields[j].Type.Kind() == reflect.Bool {
				j++
			}
			w.writeBoolRun(target, fields[i:j])
			i = j
			continue
		}
		if effectiveConditional(w.cfg.ignoreAnnotations, fd) {
			if err := w.writeConditionalField(target, fd); err != nil {
				return err
			}
			i++
			continue
		}
		if err := w.writeField(target, fd); err != nil {
			return err
		}
		i++
	}
	return nil
}

func (w *Writer) writeBoolRun(target reflect.Value, run []*FieldDescriptor) {
	for i := 0; i < len(run); i += 8 {
		var mask byte
		end := i + 8
		if end > len(run) {
			end = len(run)
		}
		for bit, fd := range run[i:end] {
			if target.FieldByIndex(fd.Index).Bool() {
				mask |= 1 << uint(bit)
			}
		}
		w.buf.WriteByte_(mask)
	}
}

func (w *Writer) writeField(target reflect.Value, fd *FieldDescriptor) error {
	fv := target.FieldByIndex(fd.Index)
	if fd.IsIntegral() {
		writeIntegralField(w.buf, fv, fd, w.cfg.ignoreAnnotations)
		return nil
	}
	return w.writeValue(fv, fd)
}

func writeIntegralField(buf *ByteBuffer, fv reflect.Value, fd *FieldDescriptor, ignoreAnnotations bool) {
	switch fv.Kind() {
	case reflect.Float32:
		buf.WriteFFloat32(float32(fv.Float()))
	case reflect.Float64:
		buf.WriteFFloat64(fv.Float())
	default:
		if effectivePlain(ignoreAnnotations, fd) {
			writePlainElem(buf, fv)
		} else if fv.Kind() == reflect.Int64 || fv.Kind() == reflect.Uint64 {
			buf.WriteVarInt64(elemInt(fv))
		} else {
			buf.WriteVarInt32(int32(elemInt(fv)))
		}
	}
}

// writeConditionalField implements the conditional skip-group protocol:
// reserve a fixed 4-byte jump target, write the field, then patch the
// target with the position right after it so a reader that decides to
// skip this field can jump straight past it.
func (w *Writer) writeConditionalField(target reflect.Value, fd *FieldDescriptor) error {
	slot := w.buf.WriterIndex()
	w.buf.WriteFInt32(0)
	if err := w.writeField(target, fd); err != nil {
		return err
	}
	w.buf.PutInt32At(slot, int32(w.buf.WriterIndex()))
	return nil
}
