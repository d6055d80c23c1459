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

import "errors"

// Error kinds distinguishable by the caller via errors.Is. All of them
// are surfaced to the top-level Writer.WriteObject / Reader.ReadObject
// call; no partial result is ever returned from those entry points.

// ErrEndOfStream indicates the input was exhausted mid-value.
var ErrEndOfStream = errors.New("fst: end of stream")

// ErrMalformedTag indicates a tag byte outside the allowed range for
// the current field context.
var ErrMalformedTag = errors.New("fst: malformed tag")

// ErrUnresolvedHandle indicates a HANDLE or COPYHANDLE referred to a
// stream position not present in the reference registry.
var ErrUnresolvedHandle = errors.New("fst: unresolved handle")

// ErrUnknownClass indicates the class-name registry could not resolve
// a class code read from the stream.
var ErrUnknownClass = errors.New("fst: unknown class code")

// ErrInstantiationFailed indicates neither the default instantiator nor
// any installed custom serializer produced an instance.
var ErrInstantiationFailed = errors.New("fst: instantiation failed")

// ErrIllegalFieldAccess indicates the class reflector rejected a
// field set or get.
var ErrIllegalFieldAccess = errors.New("fst: illegal field access")

// ErrIO wraps a failure from the underlying byte source or sink. It is
// returned as-is (via fmt.Errorf("...: %w", ErrIO)) rather than
// replacing the original error, so callers can unwrap to the cause.
var ErrIO = errors.New("fst: io error")
