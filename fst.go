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

// Marshal/Unmarshal are the zero-value-friendly entry points, built on
// Writer and Reader for callers that want to reuse either across many
// calls instead (see the threadsafe subpackage for a pooled variant).

// Marshal encodes v into a new byte slice using the default
// Configuration.
func Marshal(v interface{}) ([]byte, error) {
	return NewConfiguration().Marshal(v)
}

// Unmarshal decodes data into *v using the default Configuration.
func Unmarshal(data []byte, v interface{}) error {
	return NewConfiguration().Unmarshal(data, v)
}

// Marshal encodes v into a new byte slice using cfg.
func (cfg *Configuration) Marshal(v interface{}) ([]byte, error) {
	w := NewWriter(cfg)
	defer w.release()
	if err := w.WriteObject(v); err != nil {
		return nil, err
	}
	out := make([]byte, len(w.Bytes()))
	copy(out, w.Bytes())
	return out, nil
}

// Unmarshal decodes data into *v using cfg.
func (cfg *Configuration) Unmarshal(data []byte, v interface{}) error {
	r := NewReader(data, cfg)
	defer r.release()
	return r.ReadObject(v)
}
