package jsoncompat

import (
	"bytes"
	"testing"
)

type sample struct {
	Name   string   `json:"name"`
	Values []string `json:"values,omitempty"`
	Skip   string   `json:"-"`
}

func TestMarshalMatchesStdShape(t *testing.T) {
	data, err := Marshal(sample{Name: "ab", Skip: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"name":"ab"}` {
		t.Errorf("got %s", data)
	}
	var out sample
	if err := Unmarshal([]byte(`{"name":"n","values":["x"],"extra":1}`), &out); err != nil {
		t.Fatal(err)
	}
	if out.Name != "n" || len(out.Values) != 1 {
		t.Errorf("got %+v", out)
	}
}

func TestStreamRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(sample{Name: "stream"}); err != nil {
		t.Fatal(err)
	}
	var out sample
	if err := NewDecoder(&buf).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Name != "stream" {
		t.Errorf("got %+v", out)
	}
}
