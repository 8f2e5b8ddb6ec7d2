package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type row struct {
	Name    string    `json:"name"`
	State   string    `json:"state"`
	Build   uint64    `json:"build"`
	Subs    []string  `json:"subdomains"`
	BuiltAt time.Time `json:"built_at" table:"wide"`
	Secret  string    `json:"secret" table:"-"`
	hidden  int
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "table": FormatTable, "json": FormatJSON, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON, false).(*JSONFormatter); !ok {
		t.Error("json")
	}
	if _, ok := NewFormatter(FormatYAML, false).(*YAMLFormatter); !ok {
		t.Error("yaml")
	}
	if f, ok := NewFormatter(FormatTable, true).(*TableFormatter); !ok || !f.Wide {
		t.Error("table")
	}
}

func TestTableFormatter_Slice(t *testing.T) {
	rows := []row{
		{Name: "blog", State: "valid", Build: 3, Subs: []string{"blog", "www"}, Secret: "x"},
		{Name: "shop", State: "invalid"},
	}

	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, rows); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if strings.Fields(lines[0])[0] != "NAME" || strings.Contains(lines[0], "BUILT_AT") || strings.Contains(lines[0], "SECRET") {
		t.Errorf("header = %q", lines[0])
	}
	if got := strings.Fields(lines[1]); strings.Join(got, " ") != "blog valid 3 blog,www" {
		t.Errorf("row = %q", lines[1])
	}
	if got := strings.Fields(lines[2]); strings.Join(got, " ") != "shop invalid 0 -" {
		t.Errorf("row = %q", lines[2])
	}

	buf.Reset()
	(&TableFormatter{Wide: true, NoHeaders: true}).Format(&buf, &rows)
	if strings.Contains(buf.String(), "NAME") {
		t.Error("NoHeaders still printed headers")
	}
	if !strings.Contains(buf.String(), " -\n") {
		t.Errorf("zero time should show as -: %q", buf.String())
	}
}

func TestTableFormatter_Struct(t *testing.T) {
	var buf bytes.Buffer
	(&TableFormatter{}).Format(&buf, &row{Name: "blog", Build: 2})
	out := buf.String()
	for _, want := range []string{"FIELD", "name", "blog", "build", "2"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestTableFormatter_PreShapedAndFallback(t *testing.T) {
	tbl := &Table{Headers: []string{"SUBDOMAIN", "MANDATE"}}
	tbl.AddRow("*", "main")
	var buf bytes.Buffer
	(&TableFormatter{}).Format(&buf, tbl)
	if lines := strings.Split(buf.String(), "\n"); strings.Join(strings.Fields(lines[1]), " ") != "* main" {
		t.Errorf("table = %q", buf.String())
	}

	buf.Reset()
	(&TableFormatter{}).Format(&buf, map[string]int{"a": 1})
	if strings.TrimSpace(buf.String()) != "{\n  \"a\": 1\n}" {
		t.Errorf("fallback = %q", buf.String())
	}

	buf.Reset()
	if err := (&TableFormatter{}).Format(&buf, nil); err != nil || buf.Len() != 0 {
		t.Error("nil should print nothing")
	}
}

func TestJSONAndYAML(t *testing.T) {
	data := row{Name: "blog", Subs: []string{"www"}}

	var buf bytes.Buffer
	(&JSONFormatter{}).Format(&buf, data)
	if !strings.Contains(buf.String(), `"name": "blog"`) {
		t.Errorf("json = %q", buf.String())
	}

	buf.Reset()
	if err := (&YAMLFormatter{}).Format(&buf, data); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "name: blog\n") || !strings.Contains(out, "subdomains:\n  - www\n") {
		t.Errorf("yaml = %q", out)
	}
}

func TestSpinner(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, "rebuilding blog")
	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Success("blog build 4")
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "rebuilding blog") || !strings.HasSuffix(out, "ok blog build 4\n") {
		t.Errorf("spinner output = %q", out)
	}

	var quiet bytes.Buffer
	NewSpinner(&quiet, "x").Fail("nope")
	if !strings.HasSuffix(quiet.String(), "failed nope\n") {
		t.Errorf("fail without start = %q", quiet.String())
	}
}
