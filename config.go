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
)

// defaultReadAhead mirrors spec.md ยง6's default for
// readExternalReadAhead. The value is stored on the Configuration only:
// the in-memory Reader has the whole stream up front and does not
// consult it (see Reader.ensureReadAhead).
const defaultReadAhead = 5000

// ConditionalCallback is spec.md ยง4.5's "installed conditional
// callback": consulted once per conditional field, before it is
// parsed. Returning true skips the field's payload entirely by jumping
// to the jump target the writer left ahead of it.
type ConditionalCallback func(fd *FieldDescriptor) bool

// Configuration is spec.md ยง6's external configuration surface,
// assembled with functional options the same way the teacher's
// fory.New(opts ...Option) builds a *Fory.
type Configuration struct {
	reflector           ClassReflector
	plugins             *PluginTable
	crossLanguage       bool
	ignoreAnnotations   bool
	structMode          bool
	readAhead           int
	conditionalCallback ConditionalCallback
	verifyStructHash    bool

	registries sync.Pool
}

// registrySet is one borrowable (ClassNameRegistry, RefRegistry) pair.
// Configuration pools these -- not whole Writers/Readers, which is the
// threadsafe subpackage's separate, opt-in concern (see
// threadsafe/threadsafe.go) -- so that spec.md ยง2 row 8's "owns the
// per-thread reuse pool" holds even for a caller using NewWriter/
// NewReader directly against a shared Configuration.
type registrySet struct {
	classes *ClassNameRegistry
	refs    *RefRegistry
}

// Option configures a Configuration at construction time.
type Option func(*Configuration)

// NewConfiguration builds a Configuration from opts, defaulting to the
// package's reflect-based ClassReflector, an empty plugin table (no
// custom serializers registered), non-cross-language mode, annotations
// honored, handle-based identity preservation, and a 5000-byte
// externalizable read-ahead.
func NewConfiguration(opts ...Option) *Configuration {
	c := &Configuration{
		reflector: defaultClassReflector,
		plugins:   NewPluginTable(),
		readAhead: defaultReadAhead,
	}
	c.registries.New = func() interface{} {
		return &registrySet{classes: NewClassNameRegistry(), refs: NewRefRegistry()}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// acquireRegistries borrows a (ClassNameRegistry, RefRegistry) pair from
// the pool, allocating a fresh one only when the pool is empty.
func (c *Configuration) acquireRegistries() *registrySet {
	return c.registries.Get().(*registrySet)
}

// releaseRegistries resets and returns a pair to the pool for reuse by
// the next NewWriter/NewReader call against this Configuration.
func (c *Configuration) releaseRegistries(rs *registrySet) {
	rs.classes.Reset()
	rs.refs.Reset()
	c.registries.Put(rs)
}

// WithClassReflector overrides the default reflect-based field/metadata
// collaborator (spec.md ยง6).
func WithClassReflector(r ClassReflector) Option {
	return func(c *Configuration) { c.reflector = r }
}

// WithSerializer registers a custom Serializer plugin for t.
func WithSerializer(t interface{}, s Serializer) Option {
	return func(c *Configuration) {
		rt := elemType(t)
		c.plugins.Register(rt, s)
	}
}

// WithSerializerDelegate installs the fallback Serializer consulted for
// every class without its own registration.
func WithSerializerDelegate(s Serializer) Option {
	return func(c *Configuration) { c.plugins.SetDelegate(s) }
}

// WithCrossLanguage toggles writing enum constants by UTF name instead
// of by ordinal (spec.md ยง6). Class codes and class names are written
// the same way in both modes.
func WithCrossLanguage(on bool) Option {
	return func(c *Configuration) { c.crossLanguage = on }
}

// WithIgnoreAnnotations disables every `fst:"..."` struct-tag flag,
// forcing every field to the default (non-plain, non-conditional,
// non-compressed, non-thin) encoding regardless of source annotations.
func WithIgnoreAnnotations(on bool) Option {
	return func(c *Configuration) { c.ignoreAnnotations = on }
}

// WithStructMode switches object identity from "preserve sharing via
// handles" to "always copy", matching spec.md ยง8's structMode testable
// property: two references to the same object decode as distinct, but
// equal, instances.
func WithStructMode(on bool) Option {
	return func(c *Configuration) { c.structMode = on }
}

// WithReadAhead overrides the externalizable read-ahead slack.
func WithReadAhead(n int) Option {
	return func(c *Configuration) { c.readAhead = n }
}

// WithConditionalCallback installs the callback consulted for every
// conditional field (spec.md ยง4.5). A nil callback (the default) means
// every conditional field is always read in full.
func WithConditionalCallback(fn ConditionalCallback) Option {
	return func(c *Configuration) { c.conditionalCallback = fn }
}

// WithHashVerification opts into rejecting a compatible-mode stream
// whose struct hash doesn't match the current type's, instead of the
// default fast-reject-free behavior of treating the hash as purely
// informational (spec.md ยง3's struct hash design note).
func WithHashVerification(on bool) Option {
	return func(c *Configuration) { c.verifyStructHash = on }
}

func (c *Configuration) describe(v interface{}) (*ClassDescriptor, error) {
	return globalClassCache.describe(elemTypeOf(v), c.reflector)
}

// describeType is describe's reflect.Type-only counterpart, used by the
// reader which often has only a type (from a class code or a field's
// declared type) and no live value to introspect.
func (c *Configuration) describeType(t reflect.Type) (*ClassDescriptor, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return globalClassCache.describe(t, c.reflector)
}
