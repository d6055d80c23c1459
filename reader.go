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
	"io"
	"log"
	"reflect"
	"sort"
)

// Reader is the decode-side mirror of Writer: same two registries, same
// tag-dispatch policy run in reverse. ensureReadAhead is a documented
// no-op retained from the original implementation's buffering advisory
// hook (see SPEC_FULL.md ยง12); ReadObjectHint and the validation
// callback stack are likewise carried over from it.
type Reader struct {
	buf         *ByteBuffer
	cfg         *Configuration
	classes     *ClassNameRegistry
	refs        *RefRegistry
	validations []validationEntry
}

// NewReader creates a Reader over data, borrowing its registries from
// cfg's pool (see Configuration.acquireRegistries).
func NewReader(data []byte, cfg *Configuration) *Reader {
	if cfg == nil {
		cfg = NewConfiguration()
	}
	rs := cfg.acquireRegistries()
	return &Reader{
		buf:     NewByteBuffer(data),
		cfg:     cfg,
		classes: rs.classes,
		refs:    rs.refs,
	}
}

// release returns r's registries to cfg's pool. Called by
// Configuration.Unmarshal once a one-shot Reader is done with them; a
// Reader kept alive and reused directly (as threadsafe.Codec does) never
// calls this.
func (r *Reader) release() {
	r.cfg.releaseRegistries(&registrySet{classes: r.classes, refs: r.refs})
}

// pluginAlwaysCopy is Writer.pluginAlwaysCopy's read-side counterpart.
func (r *Reader) pluginAlwaysCopy(t reflect.Type) bool {
	if s, ok := r.cfg.plugins.Lookup(t); ok {
		return s.AlwaysCopy()
	}
	return false
}

// Reset rebinds the Reader to data for reuse, matching the teacher's
// pooling idiom.
func (r *Reader) Reset(data []byte) {
	r.buf = NewByteBuffer(data)
	r.classes.Reset()
	r.refs.Reset()
	r.validations = r.validations[:0]
}

// ResetWithCopy rebinds the Reader to a private copy of data, so the
// caller is free to reuse or mutate its own buffer immediately after the
// call returns.
func (r *Reader) ResetWithCopy(data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	r.Reset(cp)
}

// ResetWithBuffer rebinds the Reader directly to data without copying,
// the counterpart of ResetWithCopy for callers that already own an
// exclusive, immutable buffer.
func (r *Reader) ResetWithBuffer(data []byte) {
	r.Reset(data)
}

// ReadAll rebinds the Reader to the full contents of src.
func (r *Reader) ReadAll(src io.Reader) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("fst: %w: %w", ErrIO, err)
	}
	r.Reset(data)
	return nil
}

// ensureReadAhead is a no-op retained from the original implementation,
// which used it to pre-fill a buffered stream before an externalizable
// type's ReadExternal ran off the end of what had been read so far. The
// in-memory ByteBuffer here has the whole stream available up front, so
// there is nothing to pre-fill; the hook exists so a ClassReflector or
// Serializer written against the original semantics still compiles
// unchanged against this one.
func (r *Reader) ensureReadAhead(n int) {}

// validationEntry pairs a queued validation callback with the priority
// its Validatable instance registered it at.
type validationEntry struct {
	priority int
	fn       func() error
}

// pushValidation registers a callback to run once, after the top-level
// ReadObject call completes, in descending priority order (ties broken
// by registration order). A failing validation is logged, not
// propagated: it never invalidates an otherwise-successful decode.
func (r *Reader) pushValidation(fn func() error, priority int) {
	r.validations = append(r.validations, validationEntry{priority: priority, fn: fn})
}

func (r *Reader) runValidations() {
	sort.SliceStable(r.validations, func(i, j int) bool {
		return r.validations[i].priority > r.validations[j].priority
	})
	for _, e := range r.validations {
		func() {
			defer func() {
				if p := recover(); p != nil {
					log.Printf("fst: validation callback panicked: %v", p)
				}
			}()
			if err := e.fn(); err != nil {
				log.Printf("fst: validation callback failed: %v", err)
			}
		}()
	}
	r.validations = r.validations[:0]
}

// ReadObject decodes the stream's single top-level value into *v.
func (r *Reader) ReadObject(v interface{}) (err error) {
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
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("fst: ReadObject requires a non-nil pointer")
	}
	elem := rv.Elem()
	val, err := r.readValue(elem.Type(), nil)
	if err != nil {
		return err
	}
	if val.IsValid() {
		elem.Set(val)
	}
	r.runValidations()
	return nil
}

// ReadObjectHint decodes like ReadObject, but pre-seeds the top-level
// value's prediction table with hints, so if the stream's concrete type
// is among them the tag can be a cheap prediction code instead of a
// fresh OBJECT class name -- useful the first time a polymorphic field
// is decoded in a new process, before the normal table has a chance to
// warm up from a first OBJECT-tagged value of its own.
func (r *Reader) ReadObjectHint(v interface{}, hints ...reflect.Type) (err error) {
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
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("fst: ReadObjectHint requires a non-nil pointer")
	}
	elem := rv.Elem()
	fd := &FieldDescriptor{Name: "[hint]", Type: elem.Type(), possibleClasses: append([]reflect.Type{}, hints...)}
	val, err := r.readValue(elem.Type(), fd)
	if err != nil {
		return err
	}
	if val.IsValid() {
		elem.Set(val)
	}
	r.runValidations()
	return nil
}

// readValue mirrors Writer.writeValue: it reads one tag byte and
// dispatches on it.
func (r *Reader) readValue(t reflect.Type, fd *FieldDescriptor) (reflect.Value, error) {
	tag := Tag(r.buf.ReadByte_())
	posAfterTag := r.buf.ReaderIndex()

	switch tag {
	case TagNull:
		return reflect.Value{}, nil

	case TagHandle:
		pos := int(r.buf.ReadVarInt32())
		v, ok := r.refs.GetRead(pos)
		if !ok {
			return reflect.Value{}, fmt.Errorf("fst: handle %d: %w", pos, ErrUnresolvedHandle)
		}
		return v, nil

	case TagCopyHandle:
		pos := int(r.buf.ReadVarInt32())
		v, ok := r.refs.GetRead(pos)
		if !ok {
			return reflect.Value{}, fmt.Errorf("fst: handle %d: %w", pos, ErrUnresolvedHandle)
		}
		return deepCopyValue(v), nil

	case TagOneOf:
		idx := int(r.buf.ReadByte_())
		if fd == nil || idx < 0 || idx >= len(fd.oneOf) {
			return reflect.Value{}, fmt.Errorf("fst: one-of index %d: %w", idx, ErrMalformedTag)
		}
		val := reflect.New(t).Elem()
		setElemInt(val, fd.oneOf[idx].Ordinal)
		return val, nil

	case TagBigInt:
		n := r.buf.ReadVarInt32()
		return boxedInt(t, int64(n)), nil

	case TagBigLong:
		n := r.buf.ReadVarInt64()
		return boxedLong(t, n), nil

	case TagBigBooleanFalse:
		return boxedBool(t, false), nil

	case TagBigBooleanTrue:
		return boxedBool(t, true), nil

	case TagArray:
		return r.readArrayBody(fd, posAfterTag)

	case TagEnum:
		classType, err := r.classes.Decode(r.buf)
		if err != nil {
			return reflect.Value{}, err
		}
		val := reflect.New(classType).Elem()
		if r.cfg.crossLanguage {
			name := r.buf.ReadStringUTF()
			ord, ok := enumOrdinalByName(EnumConstantsOf(classType), name)
			if !ok {
				return reflect.Value{}, fmt.Errorf("fst: enum constant %q: %w", name, ErrUnknownClass)
			}
			setElemInt(val, ord)
		} else {
			setElemInt(val, r.buf.ReadVarInt64())
		}
		return val, nil

	case TagTyped:
		declType := t
		if fd != nil {
			declType = fd.Type
		}
		if declType != nil && declType.Kind() == reflect.String {
			return r.readStringValue(fd), nil
		}
		if fd == nil {
			return reflect.Value{}, fmt.Errorf("fst: TYPED tag with no field context: %w", ErrMalformedTag)
		}
		return r.decodeObjectBody(fd.Type, fd.Type.Kind() == reflect.Ptr, fd, posAfterTag)

	case TagObject:
		classType, err := r.classes.Decode(r.buf)
		if err != nil {
			return reflect.Value{}, err
		}
		posAfterClass := r.buf.ReaderIndex()
		v, err := r.decodeObjectBody(classType, wantPtrForSite(t, fd), fd, posAfterClass)
		if err == nil && fd != nil {
			fd.addPossible(classType)
		}
		return v, err

	default:
		idx, ok := predictionIndex(tag)
		if !ok || fd == nil {
			return reflect.Value{}, fmt.Errorf("fst: tag %d: %w", tag, ErrMalformedTag)
		}
		classType, ok := fd.classAt(idx)
		if !ok {
			return reflect.Value{}, fmt.Errorf("fst: prediction index %d: %w", idx, ErrMalformedTag)
		}
		return r.decodeObjectBody(classType, wantPtrForSite(t, fd), fd, posAfterTag)
	}
}

// readStringValue reads a string written by Writer.writeStringValue.
func (r *Reader) readStringValue(fd *FieldDescriptor) reflect.Value {
	var s string
	if fd != nil && effectiveCompressed(r.cfg.ignoreAnnotations, fd) {
		s = r.buf.ReadStringCompressed()
	} else {
		s = r.buf.ReadStringUTF()
	}
	return reflect.ValueOf(s)
}

// wantPtrForSite decides whether a polymorphically-dispatched value
// (OBJECT or prediction-code tag) should be instantiated as a pointer
// or a plain value, based on the declared type of the site it's being
// decoded into: fd's type if there's a field context, t (the
// ReadObject/array-element static type) otherwise.
func wantPtrForSite(t reflect.Type, fd *FieldDescriptor) bool {
	declType := t
	if fd != nil {
		declType = fd.Type
	}
	if declType == nil {
		return true
	}
	return declType.Kind() == reflect.Ptr || declType.Kind() == reflect.Interface
}

func boxedInt(t reflect.Type, n int64) reflect.Value {
	if t != nil && t.Kind() != reflect.Interface {
		val := reflect.New(t).Elem()
		setElemInt(val, n)
		return val
	}
	return reflect.ValueOf(int32(n))
}

// boxedLong is boxedInt's TagBigLong counterpart: an interface-typed site
// (t == nil or t.Kind() == Interface) boxes as int64, matching the
// TagBigLong writer branch's own boxed-value kinds (int64/uint64/int/uint)
// rather than truncating to int32.
func boxedLong(t reflect.Type, n int64) reflect.Value {
	if t != nil && t.Kind() != reflect.Interface {
		val := reflect.New(t).Elem()
		setElemInt(val, n)
		return val
	}
	return reflect.ValueOf(n)
}

func boxedBool(t reflect.Type, b bool) reflect.Value {
	if t != nil && t.Kind() == reflect.Bool {
		return reflect.ValueOf(b)
	}
	return reflect.ValueOf(b)
}

func enumOrdinalByName(set []EnumConstant, name string) (int64, bool) {
	for _, c := range set {
		if c.Name == name {
			return c.Ordinal, true
		}
	}
	return 0, false
}

// decodeObjectBody allocates an instance of concreteType, registers it
// for future handles at posAtEntry (mirroring Writer's registration
// point for the matching tag), fills its fields, and applies a
// read-resolve hook if the class has one.
func (r *Reader) decodeObjectBody(concreteType reflect.Type, wantPtr bool, fd *FieldDescriptor, posAtEntry int) (reflect.Value, error) {
	elemT := concreteType
	for elemT.Kind() == reflect.Ptr {
		elemT = elemT.Elem()
	}
	var desc *ClassDescriptor
	var err error
	if fd != nil {
		desc, err = fd.resolve(r.cfg, elemT)
	} else {
		desc, err = r.cfg.describeType(elemT)
	}
	if err != nil {
		return reflect.Value{}, err
	}

	canRegister := wantPtr && !desc.Flat && !r.cfg.structMode && !r.pluginAlwaysCopy(elemT)

	inst := reflect.New(elemT)
	if canRegister {
		r.refs.RegisterRead(posAtEntry, inst)
	}

	if err := r.readBody(inst.Elem(), desc); err != nil {
		return reflect.Value{}, err
	}

	if v, ok := inst.Interface().(Validatable); ok {
		r.pushValidation(v.FSTValidate, v.FSTValidationPriority())
	}

	result := inst.Elem()
	if wantPtr {
		result = inst
	}

	if desc.ReadResolve != nil {
		if rep, ok := desc.ReadResolve(inst.Elem()); ok {
			if canRegister {
				r.refs.Replace(posAtEntry, rep)
			}
			return rep, nil
		}
	}
	return result, nil
}

// readBody is Writer.writeBody's mirror.
func (r *Reader) readBody(target reflect.Value, desc *ClassDescriptor) error {
	if s, ok := r.cfg.plugins.Lookup(desc.Type); ok {
		inst := s.Instantiate(desc.Type)
		if inst.IsValid() {
			target.Set(inst)
		}
		return s.ReadObject(r, target)
	}
	if desc.Externalizable {
		ext := target.Addr().Interface().(Externalizable)
		return ext.ReadExternal(r)
	}
	if desc.CompatibleMode {
		return r.readCompatible(target, desc)
	}
	return r.readFields(target, desc.Fields)
}

// readFields is Writer.writeFields's mirror.
func (r *Reader) readFields(target reflect.Value, fields []*FieldDescriptor) error {
	for i := 0; i < len(fields); {
		fd := fields[i]
		if fd.IsIntegral() && fd.Type.Kind() == reflect.Bool {
			j := i
			for j < len(fields) && fields[j].IsIntegral() && fields[j].Type.Kind() == reflect.Bool {
				j++
			}
			r.readBoolRun(target, fields[i:j])
			i = j
			continue
		}
		if effectiveConditional(r.cfg.ignoreAnnotations, fd) {
			if err := r.readConditionalField(target, fd); err != nil {
				return err
			}
			i++
			continue
		}
		if err := r.readField(target, fd); err != nil {
			return err
		}
		i++
	}
	return nil
}

func (r *Reader) readBoolRun(target reflect.Value, run []*FieldDescriptor) {
	for i := 0; i < len(run); i += 8 {
		mask := r.buf.ReadByte_()
		end := i + 8
		if end > len(run) {
			end = len(run)
		}
		for bit, fd := range run[i:end] {
			target.FieldByIndex(fd.Index).SetBool(mask&(1<<uint(bit)) != 0)
		}
	}
}

func (r *Reader) readField(target reflect.Value, fd *FieldDescriptor) error {
	fv := target.FieldByIndex(fd.Index)
	if fd.IsIntegral() {
		readIntegralField(r.buf, fv, fd, r.cfg.ignoreAnnotations)
		return nil
	}
	val, err := r.readValue(fv.Type(), fd)
	if err != nil {
		return err
	}
	if val.IsValid() {
		fv.Set(val)
	}
	return nil
}

func readIntegralField(buf *ByteBuffer, fv reflect.Value, fd *FieldDescriptor, ignoreAnnotations bool) {
	switch fv.Kind() {
	case reflect.Float32:
		fv.SetFloat(float64(buf.ReadFFloat32()))
	case reflect.Float64:
		fv.SetFloat(buf.ReadFFloat64())
	default:
		if effectivePlain(ignoreAnnotations, fd) {
			readPlainElem(buf, fv)
		} else if fv.Kind() == reflect.Int64 || fv.Kind() == reflect.Uint64 {
			setElemInt(fv, buf.ReadVarInt64())
		} else {
			setElemInt(fv, int64(buf.ReadVarInt32()))
		}
	}
}

// readConditionalField reads the 4-byte skip-group jump target, consults
// the installed ConditionalCallback (if any), and either skips the field's
// payload entirely or decodes it normally. Either way the cursor lands
// exactly where writeConditionalField's patch put it.
func (r *Reader) readConditionalField(target reflect.Value, fd *FieldDescriptor) error {
	if r.cfg.conditionalCallback != nil && r.cfg.conditionalCallback(fd) {
		r.skipConditionalField()
		return nil
	}
	jump := r.buf.ReadFInt32()
	if err := r.readField(target, fd); err != nil {
		return err
	}
	if r.buf.ReaderIndex() != int(jump) {
		r.buf.SetReaderIndex(int(jump))
	}
	return nil
}

// skipConditionalField honors the skip half of the protocol: jump
// straight past the field without decoding it at all.
func (r *Reader) skipConditionalField() {
	jump := r.buf.ReadFInt32()
	r.buf.SetReaderIndex(int(jump))
}

// deepCopyValue produces an independent value graph equal to v but
// sharing no mutable backing storage with it, the semantics a
// COPYHANDLE needs ("no caching": every COPYHANDLE yields its own fresh
// instance rather than a shared decoded-once copy).
func deepCopyValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return v
		}
		np := reflect.New(v.Type().Elem())
		np.Elem().Set(deepCopyValue(v.Elem()))
		return np
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		ns := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			ns.Index(i).Set(deepCopyValue(v.Index(i)))
		}
		return ns
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		nm := reflect.MakeMapWithSize(v.Type(), v.Len())
		it := v.MapRange()
		for it.Next() {
			nm.SetMapIndex(it.Key(), deepCopyValue(it.Value()))
		}
		return nm
	case reflect.Struct:
		ns := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			if ns.Field(i).CanSet() {
				ns.Field(i).Set(deepCopyValue(v.Field(i)))
			}
		}
		return ns
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		return deepCopyValue(v.Elem())
	default:
		return v
	}
}
