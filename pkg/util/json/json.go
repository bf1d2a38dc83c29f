// Package json wraps jsoniter so the sink's per-event serialization goes
// through a compatible, faster encoder instead of reflect-heavy stdlib
// encoding/json.
package json

import (
	jsoniter "github.com/json-iterator/go"
)

// jsonAPI matches encoding/json's output byte-for-byte so Marshal is a
// drop-in replacement on the wire.
var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Marshal marshals v into its JSON encoding.
func Marshal(v interface{}) ([]byte, error) {
	return jsonAPI.Marshal(v)
}
