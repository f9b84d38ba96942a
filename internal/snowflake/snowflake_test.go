package snowflake

import "testing"

func TestParseID(t *testing.T) {
	cases := []struct {
		in   string
		want ID
	}{
		{"175928847299117063", 175928847299117063},
		{"", 0},
		{"not-a-number", 0},
		{"0", 0},
	}
	for _, c := range cases {
		if got := ParseID(c.in); got != c.want {
			t.Errorf("ParseID(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	id := ID(175928847299117063)
	if got := id.String(); got != "175928847299117063" {
		t.Errorf("String() = %q, want 175928847299117063", got)
	}
	if ParseID(id.String()) != id {
		t.Error("ParseID(id.String()) should round-trip to the same id")
	}
}

func TestIsZero(t *testing.T) {
	var zero ID
	if !zero.IsZero() {
		t.Error("zero value should report IsZero() == true")
	}
	if ID(1).IsZero() {
		t.Error("non-zero id should report IsZero() == false")
	}
}

func TestMarshalJSON(t *testing.T) {
	b, err := ID(123).MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(b) != `"123"` {
		t.Errorf("MarshalJSON() = %s, want \"123\"", b)
	}

	b, err = ID(0).MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(b) != "null" {
		t.Errorf("MarshalJSON() for zero = %s, want null", b)
	}
}

func TestUnmarshalJSON(t *testing.T) {
	var id ID
	if err := id.UnmarshalJSON([]byte(`"456"`)); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if id != 456 {
		t.Errorf("id = %d, want 456", id)
	}

	if err := id.UnmarshalJSON([]byte(`null`)); err != nil {
		t.Fatalf("UnmarshalJSON(null): %v", err)
	}
	if id != 0 {
		t.Errorf("id after null = %d, want 0", id)
	}
}
