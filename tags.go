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

// Tag is the one-byte discriminator that opens every value emission.
//
// Values from firstPredictionTag upward double as prediction codes: a
// tag byte that isn't one of the named constants below is a
// prediction-table index, resolved as
// possibleClasses[tag-firstPredictionTag] on the owning field descriptor.
type Tag byte

const (
	// TagNull marks an absent value. Body: empty.
	TagNull Tag = iota
	// TagHandle is an identity-preserving back-reference. Body: varint
	// stream position at which the referenced value was first written.
	TagHandle
	// TagCopyHandle is a back-reference that requests a fresh,
	// structurally-equal copy on read instead of the original pointer.
	// Body: varint stream position.
	TagCopyHandle
	// TagTyped marks a value whose concrete class equals the field's
	// declared static type. Body: per the field-reader loop.
	TagTyped
	// TagObject marks a value whose concrete class differs from the
	// field's declared type. Body: class code, then fields.
	TagObject
	// TagEnum marks an enum constant. Body: class code, then ordinal
	// (or name, in cross-language mode).
	TagEnum
	// TagArray marks a slice/array value. Body: class code of the
	// element type, length, elements.
	TagArray
	// TagBigInt marks a boxed (interface-held) integer that fits int32.
	// Body: varint.
	TagBigInt
	// TagBigLong marks a boxed integer that needs the 64-bit varint form.
	// Body: varint64.
	TagBigLong
	// TagBigBooleanFalse marks a boxed false. Body: empty.
	TagBigBooleanFalse
	// TagBigBooleanTrue marks a boxed true. Body: empty.
	TagBigBooleanTrue
	// TagOneOf marks a value drawn from the field's small enumerated
	// set. Body: one byte, the index into that set.
	TagOneOf

	// firstPredictionTag is the lowest tag value that is actually a
	// prediction code (possibleClasses[tag-firstPredictionTag]) rather
	// than one of the named tags above.
	firstPredictionTag
)

// maxPredictionEntries is the cap on a field descriptor's possible-class
// table: prediction codes share byte space with the tag set, so a code
// must fit in a single byte alongside the named tags above.
const maxPredictionEntries = 255 - int(firstPredictionTag)

// predictionTag returns the tag byte for the index-th entry (0-based) of
// a field's possible-classes table.
func predictionTag(index int) Tag {
	return Tag(int(firstPredictionTag) + index)
}

// predictionIndex returns the possibleClasses index encoded by tag, and
// whether tag is in fact a prediction code.
func predictionIndex(tag Tag) (int, bool) {
	if tag < firstPredictionTag {
		return 0, false
	}
	return int(tag) - int(firstPredictionTag), true
}
