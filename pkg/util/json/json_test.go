package json

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestMarshalMatchesStandardLibrary(t *testing.T) {
	testCases := []struct {
		name  string
		value interface{}
	}{
		{
			name:  "simple map",
			value: map[string]interface{}{"name": "John", "age": 30, "active": true},
		},
		{
			name: "nested map",
			value: map[string]interface{}{
				"user": map[string]interface{}{
					"name": "Jane",
					"address": map[string]interface{}{
						"street": "123 Main St",
						"city":   "Anytown",
					},
				},
				"status": "active",
			},
		},
		{
			name:  "array",
			value: []string{"apple", "banana", "cherry"},
		},
		{
			name: "struct",
			value: struct {
				Name    string   `json:"name"`
				Age     int      `json:"age"`
				Hobbies []string `json:"hobbies"`
			}{
				Name:    "Bob",
				Age:     25,
				Hobbies: []string{"reading", "coding"},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stdJSON, err := json.Marshal(tc.value)
			if err != nil {
				t.Fatalf("standard json.Marshal error: %v", err)
			}

			gotJSON, err := Marshal(tc.value)
			if err != nil {
				t.Fatalf("Marshal error: %v", err)
			}

			if !bytes.Equal(stdJSON, gotJSON) {
				t.Errorf("Marshal results differ:\nstandard: %s\ngot: %s", stdJSON, gotJSON)
			}
		})
	}
}
