package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

type slot struct {
	Index int    `json:"index" yaml:"index"`
	Name  string `json:"name" yaml:"name"`
	Data  []byte `json:"data" yaml:"data"`
}

type summary struct {
	Mode    string        `json:"mode" yaml:"mode"`
	Caps    []string      `json:"caps" yaml:"caps"`
	Slots   []slot        `json:"slots" yaml:"slots"`
	Detail  *slot         `json:"detail,omitempty" yaml:"detail,omitempty"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
	hidden  string
	Skipped string `json:"-"`
}

func TestNewFormatterSelectsByName(t *testing.T) {
	if _, ok := NewFormatter("JSON", false).(JSONFormatter); !ok {
		t.Fatalf("expected json formatter")
	}
	if _, ok := NewFormatter("yaml", false).(YAMLFormatter); !ok {
		t.Fatalf("expected yaml formatter")
	}
	if f, ok := NewFormatter("bogus", true).(TableFormatter); !ok || !f.Styled {
		t.Fatalf("expected styled table fallback, got %#v", f)
	}
	if Valid("xml") || !Valid(" table ") {
		t.Fatalf("unexpected format validation")
	}
}

func TestTableColumnsForSliceOfStructs(t *testing.T) {
	out := TableFormatter{}.Format([]slot{
		{Index: 0, Name: "pp-fw", Data: []byte{0xAB}},
		{Index: 12, Name: ""},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", out)
	}
	if strings.Join(strings.Fields(lines[0]), " ") != "INDEX NAME DATA" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if strings.Join(strings.Fields(lines[1]), " ") != "0 pp-fw ab" {
		t.Fatalf("unexpected row: %q", lines[1])
	}
	if strings.Join(strings.Fields(lines[2]), " ") != "12 - -" {
		t.Fatalf("unexpected empty row: %q", lines[2])
	}
	if strings.Index(lines[1], "pp-fw") != strings.Index(lines[0], "NAME") {
		t.Fatalf("columns not aligned:\n%s", out)
	}
}

func TestTableStructWithSections(t *testing.T) {
	out := TableFormatter{}.Format(&summary{
		Mode:    "PP",
		Caps:    []string{"GAP", "full slot"},
		Slots:   []slot{{Index: 1, Name: "a"}},
		Detail:  &slot{Index: 2, Name: "b"},
		Elapsed: 1500 * time.Millisecond,
		hidden:  "x",
		Skipped: "y",
	})
	for _, want := range []string{"mode:", "PP", "caps:", "GAP, full slot", "slots:", "elapsed:", "1.5s", "\nslots\n", "\ndetail\n", "INDEX"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Skipped") || strings.Contains(out, "hidden") {
		t.Fatalf("hidden fields rendered:\n%s", out)
	}
}

func TestTableEmptyAndNil(t *testing.T) {
	if out := (TableFormatter{}).Format([]slot{}); out != "No results.\n" {
		t.Fatalf("unexpected empty output: %q", out)
	}
	var s *summary
	if out := (TableFormatter{}).Format(s); out != "No results.\n" {
		t.Fatalf("unexpected nil output: %q", out)
	}
	if out := (TableFormatter{}).Format([]string{"a", "b"}); out != "a\nb\n" {
		t.Fatalf("unexpected scalar list: %q", out)
	}
}

func TestJSONAndYAMLRoundTripShape(t *testing.T) {
	in := summary{Mode: "FP", Caps: []string{"GAP"}}

	var fromJSON map[string]any
	if err := json.Unmarshal([]byte(JSONFormatter{}.Format(in)), &fromJSON); err != nil {
		t.Fatalf("json output invalid: %v", err)
	}
	if fromJSON["mode"] != "FP" {
		t.Fatalf("unexpected json: %v", fromJSON)
	}

	var fromYAML map[string]any
	if err := yaml.Unmarshal([]byte(YAMLFormatter{}.Format(in)), &fromYAML); err != nil {
		t.Fatalf("yaml output invalid: %v", err)
	}
	if fromYAML["mode"] != "FP" {
		t.Fatalf("unexpected yaml: %v", fromYAML)
	}
}

func TestJSONReportsMarshalError(t *testing.T) {
	out := JSONFormatter{}.Format(map[string]any{"ch": make(chan int)})
	if !strings.HasPrefix(out, "error formatting JSON") {
		t.Fatalf("expected error text, got %q", out)
	}
}
