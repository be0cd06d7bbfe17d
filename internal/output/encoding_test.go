package output

import (
	"strings"
	"testing"
)

type kind int

func (k kind) MarshalText() ([]byte, error) { return []byte([]string{"type", "method"}[k]), nil }

type sample struct {
	Zeta  string            `json:"zeta"`
	Alpha int               `json:"alpha"`
	Kind  kind              `json:"kind"`
	Gone  *string           `json:"gone"`
	Tags  map[string]string `json:"tags,omitempty"`
	List  []string          `json:"list"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"markdown", FormatMarkdown, false},
		{"md", FormatMarkdown, false},
		{" human ", FormatHuman, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDeterministicEncode(t *testing.T) {
	v := sample{Zeta: "z", Alpha: 1, Kind: 1, List: []string{}}

	got, err := DeterministicEncode(v)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"alpha":1,"kind":"method","list":[],"zeta":"z"}`
	if string(got) != want {
		t.Errorf("DeterministicEncode() = %s, want %s", got, want)
	}

	again, _ := DeterministicEncode(v)
	if string(again) != string(got) {
		t.Error("encoding is not stable")
	}
}

func TestDeterministicEncode_NoHTMLEscape(t *testing.T) {
	got, err := DeterministicEncode(map[string]string{"sig": "List<User> Get()"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), "List<User>") {
		t.Errorf("DeterministicEncode() = %s, angle brackets escaped", got)
	}
}

func TestDeterministicEncodeIndented(t *testing.T) {
	got, err := DeterministicEncodeIndented(map[string]int{"b": 2, "a": 1}, "  ")
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"a\": 1,\n  \"b\": 2\n}"
	if string(got) != want {
		t.Errorf("DeterministicEncodeIndented() = %q, want %q", got, want)
	}
}

func TestEncodeYAML(t *testing.T) {
	got, err := EncodeYAML(sample{Zeta: "z", Alpha: 3, Kind: 0, Tags: map[string]string{"b": "2", "a": "1"}})
	if err != nil {
		t.Fatal(err)
	}
	want := "alpha: 3\nkind: type\ntags:\n  a: \"1\"\n  b: \"2\"\nzeta: z\n"
	if string(got) != want {
		t.Errorf("EncodeYAML() =\n%s\nwant\n%s", got, want)
	}
}
