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

// Package threadsafe provides a concurrency-safe wrapper around fst's
// Writer and Reader using sync.Pool, for callers that want to reuse
// encoders/decoders across goroutines without synchronizing access
// themselves.
package threadsafe

import (
	"sync"

	"github.com/fst-go/fst"
)

// Codec is a concurrency-safe wrapper around a *fst.Configuration: every
// call borrows a pooled Writer or Reader, uses it, resets it, and
// returns it to the pool.
type Codec struct {
	cfg       *fst.Configuration
	writers   sync.Pool
	readers   sync.Pool
}

// New creates a concurrency-safe Codec from opts, the same options
// fst.NewConfiguration accepts.
func New(opts ...fst.Option) *Codec {
	cfg := fst.NewConfiguration(opts...)
	c := &Codec{cfg: cfg}
	c.writers.New = func() any { return fst.NewWriter(cfg) }
	c.readers.New = func() any { return fst.NewReader(nil, cfg) }
	return c
}

func (c *Codec) acquireWriter() *fst.Writer {
	return c.writers.Get().(*fst.Writer)
}

func (c *Codec) releaseWriter(w *fst.Writer) {
	w.Reset()
	c.writers.Put(w)
}

func (c *Codec) acquireReader(data []byte) *fst.Reader {
	r := c.readers.Get().(*fst.Reader)
	r.Reset(data)
	return r
}

func (c *Codec) releaseReader(r *fst.Reader) {
	r.Reset(nil)
	c.readers.Put(r)
}

// Marshal encodes v using a pooled Writer.
func (c *Codec) Marshal(v interface{}) ([]byte, error) {
	w := c.acquireWriter()
	defer c.releaseWriter(w)
	if err := w.WriteObject(v); err != nil {
		return nil, err
	}
	out := make([]byte, len(w.Bytes()))
	copy(out, w.Bytes())
	return out, nil
}

// Unmarshal decodes data into *v using a pooled Reader.
func (c *Codec) Unmarshal(data []byte, v interface{}) error {
	r := c.acquireReader(data)
	defer c.releaseReader(r)
	return r.ReadObject(v)
}

// global is the package-level Codec backing the Marshal/Unmarshal
// convenience functions below, mirroring the teacher's global pooled
// instance for drop-in use without constructing a Codec first.
var global = New()

// Marshal encodes v using the package-level Codec.
func Marshal(v interface{}) ([]byte, error) { return global.Marshal(v) }

// Unmarshal decodes data into *v using the package-level Codec.
func Unmarshal(data []byte, v interface{}) error { return global.Unmarshal(data, v) }
