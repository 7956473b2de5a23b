package main

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"
	"text/template"
	"unicode"
)

// Entity is the template input for one table.
type Entity struct {
	Package      string
	StructName   string
	RawTableName string
	Fields       []EntityField
	NeedsTime    bool
}

// EntityField is one struct field of a generated entity.
type EntityField struct {
	Name    string
	Type    string
	Tag     string
	Comment string
}

const entityTemplate = `// Code generated by jdao-gen. DO NOT EDIT.

package {{.Package}}

import (
{{- if .NeedsTime}}
	"time"
{{end}}
	"github.com/shrek82/jdao/selector"
)

// {{.StructName}} maps table {{.RawTableName}}.
type {{.StructName}} struct {
{{- range .Fields}}
	{{.Name}} {{.Type}} ` + "`" + `jdao:"{{.Tag}}"` + "`" + `{{if .Comment}} // {{.Comment}}{{end}}
{{- end}}
}

// TableName returns the table name.
func (*{{.StructName}}) TableName() string {
	return "{{.RawTableName}}"
}

// {{.StructName}}Cols holds compile-time column selectors for {{.StructName}}.
var {{.StructName}}Cols = struct {
{{- range .Fields}}
	{{.Name}} selector.Col[{{$.StructName}}]
{{- end}}
}{
{{- range .Fields}}
	{{.Name}}: selector.Field[{{$.StructName}}]("{{.Name}}"),
{{- end}}
}
`

var entityTmpl = template.Must(template.New("entity").Parse(entityTemplate))

// newEntity converts table columns into template input.
func newEntity(pkg, table string, cols []Column) Entity {
	e := Entity{
		Package:      pkg,
		StructName:   snakeToCamel(table, true),
		RawTableName: table,
	}
	for _, c := range cols {
		typ := mapType(c.DBType)
		if typ == "time.Time" {
			e.NeedsTime = true
		}
		e.Fields = append(e.Fields, EntityField{
			Name:    snakeToCamel(c.Name, true),
			Type:    typ,
			Tag:     generateTag(c),
			Comment: strings.ReplaceAll(c.Comment, "\n", " "),
		})
	}
	return e
}

// render executes the template and gofmts the result.
func render(e Entity) ([]byte, error) {
	var buf bytes.Buffer
	if err := entityTmpl.Execute(&buf, e); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", e.StructName, err)
	}
	return src, nil
}

// baseType strips length and precision, "VARCHAR(64)" -> "VARCHAR".
func baseType(dbType string) string {
	t := strings.ToUpper(dbType)
	if idx := strings.Index(t, "("); idx != -1 {
		t = t[:idx]
	}
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, " UNSIGNED")
	return t
}

// mapType maps a database column type to a Go type.
func mapType(dbType string) string {
	t := baseType(dbType)

	switch {
	case t == "TINYINT" && strings.Contains(dbType, "(1)"):
		return "bool"
	case t == "TINYINT":
		return "int8"
	case t == "SMALLINT":
		return "int16"
	case t == "MEDIUMINT" || t == "INT":
		return "int32"
	case t == "INTEGER" || t == "BIGINT":
		return "int64"
	case t == "BOOLEAN" || t == "BOOL" || t == "BIT":
		return "bool"
	case strings.Contains(t, "BLOB") || strings.HasPrefix(t, "BINARY") || strings.HasPrefix(t, "VARBINARY") || t == "BYTEA":
		return "[]byte"
	case strings.Contains(t, "CHAR") || strings.Contains(t, "TEXT") || t == "JSON" || t == "JSONB" || t == "UUID":
		return "string"
	case t == "DECIMAL" || t == "NUMERIC" || t == "DOUBLE" || t == "DOUBLE PRECISION" || t == "REAL" || t == "MONEY":
		return "float64"
	case t == "FLOAT":
		return "float32"
	case t == "DATE" || strings.HasPrefix(t, "TIME") || strings.HasPrefix(t, "DATETIME"):
		return "time.Time"
	default:
		return "string"
	}
}

// generateTag renders the jdao tag of a column.
func generateTag(c Column) string {
	tags := []string{"column:" + c.Name}
	if c.PK {
		tags = append(tags, "pk")
		if c.Auto {
			tags = append(tags, "auto")
		}
	}
	return strings.Join(tags, " ")
}

// snakeToCamel converts snake_case to CamelCase, spelling id as ID.
func snakeToCamel(s string, upperFirst bool) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i := range parts {
		if i == 0 && !upperFirst {
			continue
		}
		if strings.EqualFold(parts[i], "id") {
			parts[i] = "ID"
		} else if len(parts[i]) > 0 {
			runes := []rune(parts[i])
			runes[0] = unicode.ToUpper(runes[0])
			parts[i] = string(runes)
		}
	}
	return strings.Join(parts, "")
}
