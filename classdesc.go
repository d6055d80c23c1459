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
	"sync"

	"github.com/spaolacci/murmur3"
)

// classCache is the process-wide ClassDescriptor cache keyed by type
// and ClassReflector.
// Building a descriptor means walking the type with a ClassReflector,
// which for deeply nested types is not free; every Fory instance in the
// teacher repo shares this kind of cache across goroutines, read-mostly
// after warmup, so the cache here follows the same shape: a sync.Map for
// the lock-free read path plus a per-type sync.Once so concurrent first
// uses of the same type build it exactly once instead of racing.
// classCacheKey pairs a type with the collaborator that described it:
// two Configurations using different ClassReflectors over the same
// type (a custom one, say, versus the default) must not share a
// descriptor, so the reflector identity is part of the cache key
// rather than an afterthought bolted onto a type-only cache.
type classCacheKey struct {
	t    reflect.Type
	refl ClassReflector
}

type classCache struct {
	entries sync.Map // classCacheKey -> *classCacheEntry
}

type classCacheEntry struct {
	once sync.Once
	desc *ClassDescriptor
	err  error
}

var globalClassCache = &classCache{}

// describe returns t's ClassDescriptor as seen by reflector, building and
// caching it on first use. Safe for concurrent use; concurrent first
// calls for the same (type, reflector) pair block on one builder instead
// of duplicating work.
func (c *classCache) describe(t reflect.Type, reflector ClassReflector) (*ClassDescriptor, error) {
	key := classCacheKey{t: t, refl: reflector}
	v, _ := c.entries.LoadOrStore(key, &classCacheEntry{})
	entry := v.(*classCacheEntry)
	entry.once.Do(func() {
		entry.desc, entry.err = buildClassDescriptor(t, reflector)
	})
	return entry.desc, entry.err
}

// forget drops t's cached descriptor under reflector, letting a later
// describe rebuild it. Nothing in the package calls it: RegisterEnum
// does not invalidate descriptors already built, so a type described
// before its constants are registered keeps its old enum constants.
func (c *classCache) forget(t reflect.Type, reflector ClassReflector) {
	c.entries.Delete(classCacheKey{t: t, refl: reflector})
}

func buildClassDescriptor(t reflect.Type, reflector ClassReflector) (*ClassDescriptor, error) {
	fields, err := reflector.DescribeFields(t)
	if err != nil {
		return nil, err
	}
	d := &ClassDescriptor{
		Type:           t,
		Fields:         fields,
		Flat:           reflector.IsFlat(t),
		Externalizable: reflector.IsExternalizable(t),
		CompatibleMode: reflector.IsCompatible(t),
		ReadResolve:    reflector.ReadResolveHook(t),
		EnumConstants:  reflector.EnumConstantsOf(t),
	}
	if d.CompatibleMode {
		d.Compat = buildCompatLevels(t, fields)
	}
	d.Hash = structHash(t, fields)
	return d, nil
}

// buildCompatLevels groups fields into one CompatLevel per embedded
// struct depth, root-first: the outermost anonymous ancestor's own
// fields come first, the type's own declared fields last. This is the
// Go analogue of walking a Java class's superclass chain from
// java.lang.Object down to the concrete class (ยง4.7).
func buildCompatLevels(t reflect.Type, fields []*FieldDescriptor) []CompatLevel {
	byDepth := map[int][]*FieldDescriptor{}
	maxDepth := 0
	for _, fd := range fields {
		depth := len(fd.Index) - 1
		byDepth[depth] = append(byDepth[depth], fd)
		if depth > maxDepth {
			maxDepth = depth
		}
	}
	levels := make([]CompatLevel, 0, maxDepth+1)
	for d := maxDepth; d >= 0; d-- {
		if fs, ok := byDepth[d]; ok {
			levels = append(levels, CompatLevel{Fields: fs})
		}
	}
	return levels
}

// structHash is the murmur3-based struct-hash digest used by compatible
// mode to fast-reject an incompatible stream before attempting a
// field-by-field walk (SPEC_FULL.md ยง3/ยง10, grounded in fory's
// type_def.go computeHash). It is never written to the wire by default
// mode; compatible mode writes it at the start of every compatible-mode
// object body (see writeCompatible).
func structHash(t reflect.Type, fields []*FieldDescriptor) int32 {
	h := murmur3.New32()
	h.Write([]byte(canonicalTypeName(t)))
	for _, fd := range fields {
		h.Write([]byte(fd.Name))
		h.Write([]byte(canonicalTypeName(fd.Type)))
	}
	return int32(h.Sum32())
}
