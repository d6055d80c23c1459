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
	"sort"
	"strings"
)

// FieldFlags are the per-field annotations from spec.md ยง3's class
// descriptor: {integral, array, flat, plain, conditional, compressed,
// thin}.
type FieldFlags uint16

const (
	FieldIntegral FieldFlags = 1 << iota
	FieldArray
	FieldFlat
	FieldPlain
	FieldConditional
	FieldCompressed
	FieldThin
)

func (f FieldFlags) has(bit FieldFlags) bool { return f&bit != 0 }

// EnumConstant is one named, ordered value of an enum-like field site
// (spec.md ยง3's "oneOf" set / ยง4.4's ENUM tag payload).
type EnumConstant struct {
	Name    string
	Ordinal int64
}

// FieldDescriptor is spec.md ยง3's field descriptor: the declared type,
// the field's prediction table of previously observed concrete classes,
// its enum "oneOf" set if the declared type is enum-like, and a
// one-entry inline cache of the most recently resolved class
// descriptor.
type FieldDescriptor struct {
	Name  string
	Index []int // reflect.Value.FieldByIndex path
	Type  reflect.Type
	Flags FieldFlags

	oneOf           []EnumConstant
	possibleClasses []reflect.Type
	lastClass       *ClassDescriptor
}

// effective* honor Configuration.ignoreAnnotations: when set, every
// behavioral annotation (plain/conditional/compressed/thin) is masked
// back to the default encoding regardless of what the struct tag says,
// while the structural flags (integral/array/flat) are never masked
// since they describe the Go type itself, not an encoding choice.
func effectivePlain(ignoreAnnotations bool, fd *FieldDescriptor) bool {
	return !ignoreAnnotations && fd.IsPlain()
}
func effectiveConditional(ignoreAnnotations bool, fd *FieldDescriptor) bool {
	return !ignoreAnnotations && fd.IsConditional()
}
func effectiveCompressed(ignoreAnnotations bool, fd *FieldDescriptor) bool {
	return !ignoreAnnotations && fd.IsCompressed()
}
func effectiveThin(ignoreAnnotations bool, fd *FieldDescriptor) bool {
	return !ignoreAnnotations && fd.IsThin()
}

func (fd *FieldDescriptor) IsIntegral() bool    { return fd.Flags.has(FieldIntegral) }
func (fd *FieldDescriptor) IsArray() bool       { return fd.Flags.has(FieldArray) }
func (fd *FieldDescriptor) IsFlat() bool        { return fd.Flags.has(FieldFlat) }
func (fd *FieldDescriptor) IsPlain() bool       { return fd.Flags.has(FieldPlain) }
func (fd *FieldDescriptor) IsConditional() bool { return fd.Flags.has(FieldConditional) }
func (fd *FieldDescriptor) IsCompressed() bool  { return fd.Flags.has(FieldCompressed) }
func (fd *FieldDescriptor) IsThin() bool        { return fd.Flags.has(FieldThin) }

// OneOf returns the field's enumerated constant set, or nil if the
// declared type isn't enum-like.
func (fd *FieldDescriptor) OneOf() []EnumConstant { return fd.oneOf }

// resolve looks up t's ClassDescriptor through fd's one-entry inline
// cache before falling back to cfg's process-wide cache, skipping a
// sync.Map lookup when consecutive values at this site share a concrete
// type (the common case for a homogeneous slice or a steady-state
// graph walked repeatedly).
func (fd *FieldDescriptor) resolve(cfg *Configuration, t reflect.Type) (*ClassDescriptor, error) {
	if fd.lastClass != nil && fd.lastClass.Type == t {
		return fd.lastClass, nil
	}
	desc, err := cfg.describeType(t)
	if err != nil {
		return nil, err
	}
	fd.lastClass = desc
	return desc, nil
}

// predictionCodeFor returns the tag for t if it's already in this
// field's possible-classes table.
func (fd *FieldDescriptor) predictionCodeFor(t reflect.Type) (Tag, bool) {
	for i, pt := range fd.possibleClasses {
		if pt == t {
			return predictionTag(i), true
		}
	}
	return 0, false
}

// classAt returns the possible-classes entry for a prediction code
// produced by predictionIndex.
func (fd *FieldDescriptor) classAt(index int) (reflect.Type, bool) {
	if index < 0 || index >= len(fd.possibleClasses) {
		return nil, false
	}
	return fd.possibleClasses[index], true
}

// addPossible inserts t into the prediction table unless it's already
// full (spec.md ยง9's "Prediction table overflow": beyond the cap, fall
// back to OBJECT and do not extend the table).
func (fd *FieldDescriptor) addPossible(t reflect.Type) {
	if len(fd.possibleClasses) >= maxPredictionEntries {
		return
	}
	fd.possibleClasses = append(fd.possibleClasses, t)
}

// ClassDescriptor is spec.md ยง3's class descriptor: the class identity,
// the canonical ordered field list, compatibility info, and the
// optional externalizable / flat / compatible-mode flags and
// read-resolve hook. Built lazily on first use by classCache and never
// mutated afterward (see classdesc.go).
type ClassDescriptor struct {
	Type           reflect.Type
	Fields         []*FieldDescriptor
	Flat           bool
	Externalizable bool
	CompatibleMode bool
	Compat         []CompatLevel
	ReadResolve    func(reflect.Value) (reflect.Value, bool)
	EnumConstants  []EnumConstant
	Hash           int32
}

// CompatLevel is one superclass level of the compatible-mode field walk
// (spec.md ยง4.7). Go has no multi-level class inheritance, so "level"
// maps to one embedded anonymous struct, walked root-first (outermost
// embedding first, the struct's own fields last).
type CompatLevel struct {
	Fields []*FieldDescriptor
}

// Externalizable lets a type take full control of its own wire body,
// bypassing the field-reader loop entirely (ยง4.5 step 4).
type Externalizable interface {
	WriteExternal(w *Writer) error
	ReadExternal(r *Reader) error
}

// ReadResolver lets a type substitute itself for a canonical instance
// after decoding (ยง4.5 step 5, ยง4.3's replace).
type ReadResolver interface {
	FSTReadResolve() interface{}
}

// CompatibleType opts a struct into legacy field-by-field compatible
// mode (ยง4.7), tolerating added/removed fields across versions.
type CompatibleType interface {
	FSTCompatible()
}

// Validatable lets a decoded type queue a post-decode consistency
// check instead of validating inline during field-fill (ยง7's
// validation-callback stack, SPEC_FULL.md ยง12's
// FSTObjectInput.processValidation). FSTValidate is not called
// immediately: the Reader queues it and runs it once the top-level
// ReadObject call finishes, in descending FSTValidationPriority order,
// logging rather than propagating a failure.
type Validatable interface {
	FSTValidate() error
	FSTValidationPriority() int
}

// FlatType opts a struct out of identity preservation: it is always
// inlined, never registered, never referenced by HANDLE (the "flat"
// marker of spec.md's glossary).
type FlatType interface {
	FSTFlat()
}

// ClassReflector is the external collaborator named in spec.md ยง6:
// given a class, it yields the ordered field list (with per-field
// flags), compatibility info, the externalizable flag, and the
// read-resolve hook. The core only depends on this interface; a
// default reflect-based implementation is provided below so the codec
// works out of the box.
type ClassReflector interface {
	DescribeFields(t reflect.Type) ([]*FieldDescriptor, error)
	IsExternalizable(t reflect.Type) bool
	IsCompatible(t reflect.Type) bool
	IsFlat(t reflect.Type) bool
	ReadResolveHook(t reflect.Type) func(reflect.Value) (reflect.Value, bool)
	EnumConstantsOf(t reflect.Type) []EnumConstant
}

// defaultReflector is the reflect-based ClassReflector shipped with the
// package. Field flags are read from `fst:"flat,plain,conditional,
// compressed,thin"` struct tags; with Configuration.ignoreAnnotations
// set, the Writer/Reader mask every behavioral flag back to the
// default encoding (see the effective* helpers above).
type defaultReflector struct{}

var defaultClassReflector ClassReflector = defaultReflector{}

func (defaultReflector) DescribeFields(t reflect.Type) ([]*FieldDescriptor, error) {
	if t.Kind() != reflect.Struct {
		return nil, nil
	}
	var fields []*FieldDescriptor
	walkStructFields(t, nil, &fields)
	sortFieldsCanonical(fields)
	return fields, nil
}

// walkStructFields collects every exported field, recursing into
// anonymous (embedded) struct fields so promoted fields are visible,
// matching Go's own field-promotion rules.
func walkStructFields(t reflect.Type, prefix []int, out *[]*FieldDescriptor) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" && !sf.Anonymous {
			continue // unexported
		}
		idx := append(append([]int{}, prefix...), i)
		ft := sf.Type
		if sf.Anonymous {
			et := ft
			for et.Kind() == reflect.Ptr {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				walkStructFields(et, idx, out)
				continue
			}
		}
		*out = append(*out, newFieldDescriptor(sf.Name, idx, ft, sf.Tag.Get("fst")))
	}
}

func newFieldDescriptor(name string, idx []int, t reflect.Type, tag string) *FieldDescriptor {
	fd := &FieldDescriptor{Name: name, Index: idx, Type: t}
	k := t.Kind()
	ec := EnumConstantsOf(t)
	switch {
	// A registered enum type is not written inline as an integral field:
	// it goes through writeValue so the site can use the ONE_OF tag.
	case isIntegralKind(k) && k != reflect.Slice && k != reflect.Array && ec == nil:
		fd.Flags |= FieldIntegral
	case k == reflect.Slice || k == reflect.Array:
		fd.Flags |= FieldArray
	}
	for _, part := range strings.Split(tag, ",") {
		switch strings.TrimSpace(part) {
		case "flat":
			fd.Flags |= FieldFlat
		case "plain":
			fd.Flags |= FieldPlain
		case "conditional":
			fd.Flags |= FieldConditional
		case "compressed":
			fd.Flags |= FieldCompressed
		case "thin":
			fd.Flags |= FieldThin
		}
	}
	if ec != nil {
		fd.oneOf = ec
	}
	return fd
}

func isIntegralKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.Int8, reflect.Uint8, reflect.Int16, reflect.Uint16,
		reflect.Int32, reflect.Uint32, reflect.Int64, reflect.Uint64, reflect.Int, reflect.Uint,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// fieldKindRank buckets kinds for the canonical ordering in spec.md ยง3:
// "primitives first, then references, tiebreak by field name". Within
// primitives, like-typed fields are grouped contiguously so boolean
// packing and fixed-width runs stay dense (spec.md ยง4.8).
func fieldKindRank(fd *FieldDescriptor) int {
	if fd.IsArray() {
		return 100
	}
	if !fd.IsIntegral() {
		return 200
	}
	switch fd.Type.Kind() {
	case reflect.Bool:
		return 0
	case reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Int, reflect.Uint:
		return 3
	case reflect.Int64, reflect.Uint64:
		return 4
	case reflect.Float32:
		return 5
	case reflect.Float64:
		return 6
	default:
		return 50
	}
}

func sortFieldsCanonical(fields []*FieldDescriptor) {
	sort.SliceStable(fields, func(i, j int) bool {
		ri, rj := fieldKindRank(fields[i]), fieldKindRank(fields[j])
		if ri != rj {
			return ri < rj
		}
		return fields[i].Name < fields[j].Name
	})
}

func (defaultReflector) IsExternalizable(t reflect.Type) bool {
	return reflect.PtrTo(t).Implements(reflect.TypeOf((*Externalizable)(nil)).Elem())
}

func (defaultReflector) IsCompatible(t reflect.Type) bool {
	return reflect.PtrTo(t).Implements(reflect.TypeOf((*CompatibleType)(nil)).Elem())
}

func (defaultReflector) IsFlat(t reflect.Type) bool {
	return reflect.PtrTo(t).Implements(reflect.TypeOf((*FlatType)(nil)).Elem())
}

func (defaultReflector) ReadResolveHook(t reflect.Type) func(reflect.Value) (reflect.Value, bool) {
	rrType := reflect.TypeOf((*ReadResolver)(nil)).Elem()
	pt := reflect.PtrTo(t)
	if !pt.Implements(rrType) {
		return nil
	}
	return func(v reflect.Value) (reflect.Value, bool) {
		rr := v.Addr().Interface().(ReadResolver)
		rep := rr.FSTReadResolve()
		if rep == nil {
			return v, false
		}
		rv := reflect.ValueOf(rep)
		return rv, true
	}
}

func (defaultReflector) EnumConstantsOf(t reflect.Type) []EnumConstant {
	return EnumConstantsOf(t)
}

// --- process-wide enum registry -------------------------------------

// enumRegistry maps an enum-like named type to its ordered constants.
// Go cannot introspect const declarations at runtime, so this is the
// explicit collaborator hook spec.md ยง3 describes as "the enumeration
// constants of the site if the type is enum-like": callers populate it
// with RegisterEnum.
var enumRegistry = struct {
	m map[reflect.Type][]EnumConstant
}{m: make(map[reflect.Type][]EnumConstant)}

// RegisterEnum declares t as an enum-like type with the given ordered
// (name, ordinal) constants, enabling the ENUM tag (ordinal or, in
// cross-language mode, name) and the cheaper ONE_OF tag when a field's
// declared type is exactly t.
func RegisterEnum(t reflect.Type, constants ...EnumConstant) {
	enumRegistry.m[t] = constants
}

// EnumConstantsOf returns t's registered enum constants, or nil.
func EnumConstantsOf(t reflect.Type) []EnumConstant {
	return enumRegistry.m[t]
}
