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

// Command fstdump prints the tag structure of a stream without
// materializing any Go types, for inspecting a capture whose schema you
// don't have registered in the current process.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fst-go/fst"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: fstdump <file>\n")
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "fstdump:", err)
		os.Exit(1)
	}
	buf := fst.NewByteBuffer(data)
	d := &dumper{buf: buf, classNames: make(map[int32]string)}
	if err := d.value(0); err != nil {
		fmt.Fprintln(os.Stderr, "fstdump:", err)
		os.Exit(1)
	}
}

// dumper re-implements just enough of the wire protocol's structural
// shape to trace it: the class-name zero-sentinel protocol (tracked
// locally as code -> name, since there is no reflect.Type to resolve
// to) and the tag dispatch of writer.go/reader.go, without ever
// allocating a Go value.
type dumper struct {
	buf        *fst.ByteBuffer
	classNames map[int32]string
	nextCode   int32
}

func (d *dumper) indent(depth int) string {
	s := ""
	for i := 0; i < depth; i++ {
		s += "  "
	}
	return s
}

func (d *dumper) className() (string, error) {
	if d.nextCode == 0 {
		d.nextCode = 32
	}
	code := d.buf.ReadVarInt32()
	if code != 0 {
		name, ok := d.classNames[code]
		if !ok {
			return "", fmt.Errorf("unknown class code %d", code)
		}
		return name, nil
	}
	name := d.buf.ReadStringUTF()
	d.classNames[d.nextCode] = name
	d.nextCode++
	n := d.buf.ReadVarInt32()
	for i := int32(0); i < n; i++ {
		sname := d.buf.ReadStringUTF()
		d.classNames[d.nextCode] = sname
		d.nextCode++
	}
	return name, nil
}

func (d *dumper) value(depth int) error {
	tag := fst.Tag(d.buf.ReadByte_())
	pad := d.indent(depth)
	switch tag {
	case fst.TagNull:
		fmt.Printf("%sNULL\n", pad)
	case fst.TagHandle:
		pos := d.buf.ReadVarInt32()
		fmt.Printf("%sHANDLE -> %d\n", pad, pos)
	case fst.TagCopyHandle:
		pos := d.buf.ReadVarInt32()
		fmt.Printf("%sCOPYHANDLE -> %d\n", pad, pos)
	case fst.TagOneOf:
		idx := d.buf.ReadByte_()
		fmt.Printf("%sONE_OF #%d\n", pad, idx)
	case fst.TagBigInt:
		v := d.buf.ReadVarInt32()
		fmt.Printf("%sBIG_INT %d\n", pad, v)
	case fst.TagBigLong:
		v := d.buf.ReadVarInt64()
		fmt.Printf("%sBIG_LONG %d\n", pad, v)
	case fst.TagBigBooleanFalse:
		fmt.Printf("%sBIG_BOOLEAN false\n", pad)
	case fst.TagBigBooleanTrue:
		fmt.Printf("%sBIG_BOOLEAN true\n", pad)
	case fst.TagEnum:
		name, err := d.className()
		if err != nil {
			return err
		}
		ord := d.buf.ReadVarInt64()
		fmt.Printf("%sENUM %s #%d\n", pad, name, ord)
	case fst.TagArray:
		return d.array(depth)
	case fst.TagTyped:
		fmt.Printf("%sTYPED (string or statically-typed value; body opaque without schema)\n", pad)
	case fst.TagObject:
		name, err := d.className()
		if err != nil {
			return err
		}
		fmt.Printf("%sOBJECT %s (fields opaque without schema)\n", pad, name)
	default:
		fmt.Printf("%sPREDICTION #%d (fields opaque without schema)\n", pad, tag)
	}
	return nil
}

func (d *dumper) array(depth int) error {
	pad := d.indent(depth)
	name, err := d.className()
	if err != nil {
		return err
	}
	n := d.buf.ReadVarInt32()
	fmt.Printf("%sARRAY %s[%d]\n", pad, name, n)
	return nil
}
