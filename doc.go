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

// Package fst is a compact binary serialization codec for arbitrary
// structured Go object graphs.
//
// It converts a live in-memory value (with cycles, shared pointers, typed
// slices and nested structs) into a self-describing byte stream and
// recovers an equal graph from that stream. Compared to a naive
// "write every field" encoder it additionally gives:
//
//   - small encodings through variable-length integers and a compressed
//     string form (see ByteBuffer's WriteVarInt32/WriteStringCompressed);
//   - object identity preservation: two fields pointing at the same
//     pointer decode to the same pointer (see RefRegistry);
//   - tolerance of cycles in the object graph;
//   - a per-stream class-name dictionary that amortises the cost of
//     repeated type tags (see ClassNameRegistry).
//
// The package does not perform transport or encryption, and does not
// support schema evolution across incompatible type changes -- only the
// added/removed-field drift handled by compatible mode (see compat.go).
package fst
