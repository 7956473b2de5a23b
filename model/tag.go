package model

import (
	"strings"
)

// TagName is the struct tag key read by the extractor.
const TagName = "jdao"

// Tag represents parsed jdao tags
type Tag struct {
	Column     string
	Table      string
	PrimaryKey bool
	AutoInc    bool
	Ignore     bool
}

// ParseTag parses the "jdao" tag string.
// Space, semicolon and comma all separate options: `jdao:"column:user_name;pk"`.
func ParseTag(tagStr string) *Tag {
	tag := &Tag{}
	tagStr = strings.TrimSpace(tagStr)
	if tagStr == "" {
		return tag
	}
	if tagStr == "-" {
		tag.Ignore = true
		return tag
	}

	parts := strings.FieldsFunc(tagStr, func(r rune) bool {
		return r == ';' || r == ',' || r == ' ' || r == '\t'
	})

	for _, part := range parts {
		kv := strings.SplitN(part, ":", 2)
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		var val string
		if len(kv) > 1 {
			val = strings.TrimSpace(kv[1])
		}

		switch key {
		case "column":
			tag.Column = val
		case "table":
			tag.Table = val
		case "pk":
			tag.PrimaryKey = true
		case "auto":
			tag.AutoInc = true
		case "-", "ignore", "transient":
			tag.Ignore = true
		}
	}
	return tag
}
