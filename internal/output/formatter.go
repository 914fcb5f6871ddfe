// Package output renders command results as tables, JSON or YAML.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

type Formatter interface {
	Format(data any) string
}

// NewFormatter returns the formatter for format. Unknown names fall back to
// a plain table. Styled tables color their headers.
func NewFormatter(format string, styled bool) Formatter {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON:
		return JSONFormatter{}
	case FormatYAML:
		return YAMLFormatter{}
	default:
		return TableFormatter{Styled: styled}
	}
}

// Valid reports whether format names a supported output.
func Valid(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatTable, FormatJSON, FormatYAML:
		return true
	}
	return false
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

// TableFormatter aligns structs as key/value lists and slices of structs as
// columns. Nested struct slices are rendered as sections below the parent.
type TableFormatter struct {
	Styled bool
}

func (f TableFormatter) Format(data any) string {
	var buf bytes.Buffer
	f.render(&buf, reflect.ValueOf(data))
	return buf.String()
}

func (f TableFormatter) render(buf *bytes.Buffer, v reflect.Value) {
	v = indirect(v)
	if !v.IsValid() {
		buf.WriteString(f.dim("No results.") + "\n")
		return
	}

	w := tabwriter.NewWriter(buf, 0, 4, 2, ' ', 0)
	var sections []section

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			buf.WriteString(f.dim("No results.") + "\n")
			return
		}
		elem := indirect(v.Index(0))
		if elem.Kind() != reflect.Struct {
			for i := 0; i < v.Len(); i++ {
				fmt.Fprintln(w, cell(v.Index(i)))
			}
			break
		}
		f.columns(buf, v, visibleFields(elem.Type()))
		return
	case reflect.Struct:
		for _, fd := range visibleFields(v.Type()) {
			fv := v.Field(fd.index)
			if isStructSlice(fv) {
				sections = append(sections, section{title: fd.label, value: fv})
				fmt.Fprintf(w, "%s:\t%d\n", f.header(fd.label), fv.Len())
				continue
			}
			if inner := indirect(fv); inner.IsValid() && inner.Kind() == reflect.Struct && !isScalarStruct(inner) {
				sections = append(sections, section{title: fd.label, value: inner})
				continue
			}
			fmt.Fprintf(w, "%s:\t%s\n", f.header(fd.label), cell(fv))
		}
	default:
		fmt.Fprintln(w, cell(v))
	}
	w.Flush()

	for _, s := range sections {
		buf.WriteString("\n" + f.title(s.title) + "\n")
		f.render(buf, s.value)
	}
}

// columns styles the header line after alignment so escape codes do not
// count toward column widths.
func (f TableFormatter) columns(buf *bytes.Buffer, v reflect.Value, fields []field) {
	var tmp bytes.Buffer
	w := tabwriter.NewWriter(&tmp, 0, 4, 2, ' ', 0)
	headers := make([]string, len(fields))
	for i, fd := range fields {
		headers[i] = strings.ToUpper(fd.label)
	}
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for i := 0; i < v.Len(); i++ {
		row := indirect(v.Index(i))
		vals := make([]string, len(fields))
		for j, fd := range fields {
			if row.IsValid() {
				vals[j] = cell(row.Field(fd.index))
			} else {
				vals[j] = "-"
			}
		}
		fmt.Fprintln(w, strings.Join(vals, "\t"))
	}
	w.Flush()

	head, rest, _ := strings.Cut(tmp.String(), "\n")
	buf.WriteString(f.header(strings.TrimRight(head, " ")) + "\n" + rest)
}

type section struct {
	title string
	value reflect.Value
}

type field struct {
	index int
	label string
}

// visibleFields lists exported fields, labelled by their json name when set.
// Fields tagged json:"-" are skipped.
func visibleFields(t reflect.Type) []field {
	var out []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		label := sf.Name
		if tag, ok := sf.Tag.Lookup("json"); ok {
			name, _, _ := strings.Cut(tag, ",")
			if name == "-" {
				continue
			}
			if name != "" {
				label = name
			}
		}
		out = append(out, field{index: i, label: label})
	}
	return out
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isStructSlice(v reflect.Value) bool {
	if v.Kind() != reflect.Slice {
		return false
	}
	et := v.Type().Elem()
	for et.Kind() == reflect.Pointer {
		et = et.Elem()
	}
	return et.Kind() == reflect.Struct
}

func isScalarStruct(v reflect.Value) bool {
	_, ok := v.Interface().(fmt.Stringer)
	return ok || v.Type() == reflect.TypeOf(time.Time{})
}

func cell(v reflect.Value) string {
	v = indirect(v)
	if !v.IsValid() {
		return "-"
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return fmt.Sprintf("%x", v.Interface())
		}
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = cell(v.Index(i))
		}
		if len(parts) == 0 {
			return "-"
		}
		return strings.Join(parts, ", ")
	case reflect.String:
		if v.Len() == 0 {
			return "-"
		}
	}
	return fmt.Sprintf("%v", v.Interface())
}

func (f TableFormatter) header(s string) string {
	if !f.Styled {
		return s
	}
	return headerStyle.Render(s)
}

func (f TableFormatter) title(s string) string {
	if !f.Styled {
		return s
	}
	return titleStyle.Render(s)
}

func (f TableFormatter) dim(s string) string {
	if !f.Styled {
		return s
	}
	return dimStyle.Render(s)
}

type JSONFormatter struct{}

func (JSONFormatter) Format(data any) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("error formatting JSON: %v\n", err)
	}
	return string(b) + "\n"
}

type YAMLFormatter struct{}

func (YAMLFormatter) Format(data any) string {
	b, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Sprintf("error formatting YAML: %v\n", err)
	}
	return string(b)
}
