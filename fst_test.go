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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type person struct {
	Name string
	Age  int32
}

func TestMarshalNilPointerIsOneByteNull(t *testing.T) {
	var p *person
	data, err := Marshal(p)
	require.NoError(t, err)
	require.Len(t, data, 1)
	require.Equal(t, byte(TagNull), data[0])

	var got *person
	require.NoError(t, Unmarshal(data, &got))
	require.Nil(t, got)
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	RegisterType(person{})
	src := &person{Name: "Ada", Age: 36}
	data, err := Marshal(src)
	require.NoError(t, err)

	var dst person
	require.NoError(t, Unmarshal(data, &dst))
	require.Equal(t, *src, dst)
}

type sharedHolder struct {
	A *person
	B *person
}

func TestSharedPointerRoundTripsAsHandle(t *testing.T) {
	RegisterType(person{})
	shared := &person{Name: "Grace", Age: 40}
	src := &sharedHolder{A: shared, B: shared}

	data, err := Marshal(src)
	require.NoError(t, err)

	var dst sharedHolder
	require.NoError(t, Unmarshal(data, &dst))
	require.Same(t, dst.A, dst.B)
	require.Equal(t, *shared, *dst.A)
}

type selfRef struct {
	Name string
	Self *selfRef
}

func TestSelfCycleIdentityPreserved(t *testing.T) {
	RegisterType(selfRef{})
	o := &selfRef{Name: "loop"}
	o.Self = o

	data, err := Marshal(o)
	require.NoError(t, err)

	// The decoded value must land in a *selfRef variable, not a bare
	// selfRef: only a pointer-typed top-level site matches the pointer
	// identity the writer registered for o, so the HANDLE that closes
	// the cycle back to the root object can resolve.
	var dst *selfRef
	require.NoError(t, Unmarshal(data, &dst))
	require.NotNil(t, dst)
	require.Same(t, dst, dst.Self)
	require.Equal(t, "loop", dst.Name)
}

func TestStructModeAlwaysCopies(t *testing.T) {
	RegisterType(person{})
	shared := &person{Name: "Linus", Age: 55}
	src := &sharedHolder{A: shared, B: shared}

	cfg := NewConfiguration(WithStructMode(true))
	data, err := cfg.Marshal(src)
	require.NoError(t, err)

	var dst sharedHolder
	require.NoError(t, cfg.Unmarshal(data, &dst))
	require.NotSame(t, dst.A, dst.B)
	require.Equal(t, *dst.A, *dst.B)
}

type color int32

const (
	colorRed color = iota
	colorGreen
	colorBlue
)

func TestEnumRoundTrip(t *testing.T) {
	// A bare top-level enum value has no field context (fd == nil), so
	// it takes the ENUM tag rather than the cheaper ONE_OF form a
	// same-typed struct field would use (see TestEnumOneOfFieldSite).
	RegisterEnum(reflect.TypeOf(color(0)),
		EnumConstant{Name: "red", Ordinal: int64(colorRed)},
		EnumConstant{Name: "green", Ordinal: int64(colorGreen)},
		EnumConstant{Name: "blue", Ordinal: int64(colorBlue)},
	)

	data, err := Marshal(colorBlue)
	require.NoError(t, err)
	require.Equal(t, byte(TagEnum), data[0])

	var dst color
	require.NoError(t, Unmarshal(data, &dst))
	require.Equal(t, colorBlue, dst)
}

func TestEnumOneOfFieldSite(t *testing.T) {
	type withOneOf struct {
		Shade color
	}
	RegisterType(withOneOf{})
	RegisterEnum(reflect.TypeOf(color(0)),
		EnumConstant{Name: "red", Ordinal: int64(colorRed)},
		EnumConstant{Name: "green", Ordinal: int64(colorGreen)},
		EnumConstant{Name: "blue", Ordinal: int64(colorBlue)},
	)

	src := &withOneOf{Shade: colorGreen}
	data, err := Marshal(src)
	require.NoError(t, err)

	var dst withOneOf
	require.NoError(t, Unmarshal(data, &dst))
	require.Equal(t, colorGreen, dst.Shade)
}

type boxedFields struct {
	Val interface{}
}

func TestBoxedPrimitivesInInterfaceField(t *testing.T) {
	RegisterType(boxedFields{})

	cases := []interface{}{int32(42), int64(1 << 40), true, false}
	for _, v := range cases {
		src := &boxedFields{Val: v}
		data, err := Marshal(src)
		require.NoError(t, err)

		var dst boxedFields
		require.NoError(t, Unmarshal(data, &dst))
		require.Equal(t, v, dst.Val)
	}
}

type stringPair struct {
	Compact string `fst:"compressed"`
	Plain   string
}

func TestCompressedAndUTFStringForms(t *testing.T) {
	RegisterType(stringPair{})
	src := &stringPair{Compact: "0123456789ABCDEF", Plain: "héllo 世界"}
	data, err := Marshal(src)
	require.NoError(t, err)

	var dst stringPair
	require.NoError(t, Unmarshal(data, &dst))
	require.Equal(t, src.Compact, dst.Compact)
	require.Equal(t, src.Plain, dst.Plain)
}

type thinArrayHolder struct {
	Values []int32 `fst:"thin"`
}

type deltaArrayHolder struct {
	Values []int32 `fst:"compressed"`
}

type plainArrayHolder struct {
	Values []int32 `fst:"plain"`
}

func TestThinArraySparseEncodingIsSmall(t *testing.T) {
	RegisterType(thinArrayHolder{})
	RegisterType(plainArrayHolder{})
	values := make([]int32, 200)
	values[10] = 7
	values[190] = 9

	thinData, err := Marshal(&thinArrayHolder{Values: values})
	require.NoError(t, err)
	plainData, err := Marshal(&plainArrayHolder{Values: values})
	require.NoError(t, err)
	require.Less(t, len(thinData), len(plainData))

	var dst thinArrayHolder
	require.NoError(t, Unmarshal(thinData, &dst))
	require.Equal(t, values, dst.Values)
}

func TestMonotonicDeltaArraySmallerThanPlain(t *testing.T) {
	RegisterType(deltaArrayHolder{})
	RegisterType(plainArrayHolder{})
	values := make([]int32, 100)
	for i := range values {
		values[i] = int32(i * 3)
	}

	deltaData, err := Marshal(&deltaArrayHolder{Values: values})
	require.NoError(t, err)
	plainData, err := Marshal(&plainArrayHolder{Values: values})
	require.NoError(t, err)
	require.Less(t, len(deltaData), len(plainData))

	var dst deltaArrayHolder
	require.NoError(t, Unmarshal(deltaData, &dst))
	require.Equal(t, values, dst.Values)
}

type conditionalHolder struct {
	Keep bool
	Big  string `fst:"conditional"`
	Tail int32
}

func TestConditionalFieldSkipGroupRoundTrip(t *testing.T) {
	RegisterType(conditionalHolder{})
	src := &conditionalHolder{Keep: true, Big: "a payload nobody needs to inspect", Tail: 99}
	data, err := Marshal(src)
	require.NoError(t, err)

	var dst conditionalHolder
	require.NoError(t, Unmarshal(data, &dst))
	require.Equal(t, *src, dst)
}

func TestConditionalCallbackSkipsField(t *testing.T) {
	RegisterType(conditionalHolder{})
	src := &conditionalHolder{Keep: true, Big: "a payload nobody needs to inspect", Tail: 99}
	data, err := Marshal(src)
	require.NoError(t, err)

	cfg := NewConfiguration(WithConditionalCallback(func(fd *FieldDescriptor) bool {
		return fd.Name == "Big"
	}))
	var dst conditionalHolder
	require.NoError(t, cfg.Unmarshal(data, &dst))
	require.Equal(t, src.Keep, dst.Keep)
	require.Empty(t, dst.Big)
	require.Equal(t, src.Tail, dst.Tail)
}

type ignoredAnnotations struct {
	Values []int32 `fst:"thin"`
}

func TestIgnoreAnnotationsMasksThinStrategy(t *testing.T) {
	RegisterType(ignoredAnnotations{})
	cfg := NewConfiguration(WithIgnoreAnnotations(true))
	src := &ignoredAnnotations{Values: []int32{0, 0, 0, 5}}
	data, err := cfg.Marshal(src)
	require.NoError(t, err)

	var dst ignoredAnnotations
	require.NoError(t, cfg.Unmarshal(data, &dst))
	require.Equal(t, src.Values, dst.Values)
}

// evolvingConfig stands in for one Go type whose wire schema changed
// across two library versions: "Old" existed in the version that wrote
// a stream, "New" exists in the version reading it, and "Name" survived
// both. A single compiled type has to carry every field that might be
// present at either end; subsetReflector below is what actually varies
// between the two versions' views of it.
type evolvingConfig struct {
	Name string
	Old  int32
	New  string
}

func (evolvingConfig) FSTCompatible() {}

// subsetReflector wraps the default reflector but narrows DescribeFields
// to a named subset, simulating a ClassReflector built against an older
// or newer field set for the same registered type (spec.md ยง6's
// ClassReflector collaborator is exactly the seam a caller would use to
// plug in generated-code metadata for a specific schema version).
type subsetReflector struct {
	fieldCSV string // comma-joined field names kept; comparable map key
}

func onlyFields(names ...string) subsetReflector {
	return subsetReflector{fieldCSV: strings.Join(names, ",")}
}

func (s subsetReflector) keep(name string) bool {
	for _, n := range strings.Split(s.fieldCSV, ",") {
		if n == name {
			return true
		}
	}
	return false
}

func (s subsetReflector) DescribeFields(t reflect.Type) ([]*FieldDescriptor, error) {
	fields, err := defaultClassReflector.DescribeFields(t)
	if err != nil {
		return nil, err
	}
	var out []*FieldDescriptor
	for _, fd := range fields {
		if s.keep(fd.Name) {
			out = append(out, fd)
		}
	}
	return out, nil
}

func (s subsetReflector) IsExternalizable(t reflect.Type) bool { return false }
func (s subsetReflector) IsCompatible(t reflect.Type) bool     { return true }
func (s subsetReflector) IsFlat(t reflect.Type) bool           { return false }
func (s subsetReflector) ReadResolveHook(t reflect.Type) func(reflect.Value) (reflect.Value, bool) {
	return nil
}
func (s subsetReflector) EnumConstantsOf(t reflect.Type) []EnumConstant { return nil }

func TestCompatibleModeToleratesFieldDrift(t *testing.T) {
	RegisterType(evolvingConfig{})

	writerCfg := NewConfiguration(WithClassReflector(onlyFields("Name", "Old")))
	src := &evolvingConfig{Name: "config-a", Old: 7}
	data, err := writerCfg.Marshal(src)
	require.NoError(t, err)

	readerCfg := NewConfiguration(WithClassReflector(onlyFields("Name", "New")))
	var dst evolvingConfig
	require.NoError(t, readerCfg.Unmarshal(data, &dst))
	require.Equal(t, "config-a", dst.Name)
	require.Equal(t, "", dst.New)
	require.Equal(t, int32(0), dst.Old) // reader's view never had "Old"
}

type externalPoint struct {
	X, Y int32
}

func (p *externalPoint) WriteExternal(w *Writer) error {
	w.buf.WriteVarInt32(p.X)
	w.buf.WriteVarInt32(p.Y)
	return nil
}

func (p *externalPoint) ReadExternal(r *Reader) error {
	p.X = r.buf.ReadVarInt32()
	p.Y = r.buf.ReadVarInt32()
	return nil
}

func TestExternalizableTypeUsesCustomBody(t *testing.T) {
	RegisterType(externalPoint{})
	src := &externalPoint{X: 3, Y: 4}
	data, err := Marshal(src)
	require.NoError(t, err)

	var dst externalPoint
	require.NoError(t, Unmarshal(data, &dst))
	require.Equal(t, *src, dst)
}

type canonicalUser struct {
	id int32
}

var canonicalUsers = map[int32]*canonicalUser{}

type userRef struct {
	ID int32
}

func (u *userRef) FSTReadResolve() interface{} {
	if c, ok := canonicalUsers[u.ID]; ok {
		return c
	}
	c := &canonicalUser{id: u.ID}
	canonicalUsers[u.ID] = c
	return c
}

func TestReadResolveSubstitutesCanonicalInstance(t *testing.T) {
	RegisterType(userRef{})
	canonicalUsers = map[int32]*canonicalUser{}

	data, err := Marshal(&userRef{ID: 5})
	require.NoError(t, err)

	var dst interface{}
	r := NewReader(data, NewConfiguration())
	val, err := r.readValue(reflect.TypeOf((*userRef)(nil)), nil)
	require.NoError(t, err)
	dst = val.Interface()

	got, ok := dst.(*canonicalUser)
	require.True(t, ok)
	require.Equal(t, int32(5), got.id)
}

// validatedOrder records the order its FSTValidate calls actually ran in,
// letting the test assert descending-priority execution directly.
var validatedOrder []string

type validatedOrder1 struct {
	Name string
}

func (v *validatedOrder1) FSTValidate() error {
	validatedOrder = append(validatedOrder, v.Name)
	return nil
}

func (v *validatedOrder1) FSTValidationPriority() int { return 1 }

type validatedHigh struct {
	Name string
}

func (v *validatedHigh) FSTValidate() error {
	validatedOrder = append(validatedOrder, v.Name)
	return nil
}

func (v *validatedHigh) FSTValidationPriority() int { return 10 }

type validationHolder struct {
	Low  validatedOrder1
	High validatedHigh
}

func TestValidationCallbacksRunInDescendingPriorityAfterDecode(t *testing.T) {
	RegisterType(validationHolder{})
	validatedOrder = nil

	src := &validationHolder{Low: validatedOrder1{Name: "low"}, High: validatedHigh{Name: "high"}}
	data, err := Marshal(src)
	require.NoError(t, err)

	require.Nil(t, validatedOrder, "validation must not run during encode")

	var dst validationHolder
	require.NoError(t, Unmarshal(data, &dst))
	require.Equal(t, []string{"high", "low"}, validatedOrder)
}

// copyBox is paired with a Serializer whose AlwaysCopy reports true, so
// two references to the same instance must decode as distinct values
// rather than sharing identity through a HANDLE.
type copyBox struct {
	N int32
}

type copyBoxSerializer struct{}

func (copyBoxSerializer) WriteObject(w *Writer, v reflect.Value) error {
	w.buf.WriteVarInt32(int32(v.FieldByName("N").Int()))
	return nil
}

func (copyBoxSerializer) ReadObject(r *Reader, v reflect.Value) error {
	v.FieldByName("N").SetInt(int64(r.buf.ReadVarInt32()))
	return nil
}

func (copyBoxSerializer) Instantiate(t reflect.Type) reflect.Value {
	return reflect.Value{}
}

func (copyBoxSerializer) AlwaysCopy() bool { return true }

type copyBoxPair struct {
	A *copyBox
	B *copyBox
}

func TestAlwaysCopyPluginNeverSharesIdentity(t *testing.T) {
	RegisterType(copyBoxPair{})
	cfg := NewConfiguration(WithSerializer(copyBox{}, copyBoxSerializer{}))

	shared := &copyBox{N: 42}
	src := &copyBoxPair{A: shared, B: shared}
	data, err := cfg.Marshal(src)
	require.NoError(t, err)

	var dst copyBoxPair
	require.NoError(t, cfg.Unmarshal(data, &dst))
	require.Equal(t, int32(42), dst.A.N)
	require.Equal(t, int32(42), dst.B.N)
	require.NotSame(t, dst.A, dst.B)
}
