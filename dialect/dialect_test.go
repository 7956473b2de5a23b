package dialect

import (
	"testing"
)

func TestDialects(t *testing.T) {
	cases := []struct {
		driver      string
		name        string
		quoted      string
		placeholder string
	}{
		{"mysql", "mysql", "`users`", "?"},
		{"sqlite3", "sqlite3", "`users`", "?"},
		{"postgres", "postgres", `"users"`, "$2"},
		{"pgx", "postgres", `"users"`, "$2"},
		{"sqlserver", "sqlserver", "[users]", "@p2"},
	}
	for _, c := range cases {
		t.Run(c.driver, func(t *testing.T) {
			d, ok := Get(c.driver)
			if !ok {
				t.Fatalf("dialect %s not registered", c.driver)
			}
			if d.Name() != c.name {
				t.Errorf("Expected name %s, got %s", c.name, d.Name())
			}
			if got := d.Quote("users"); got != c.quoted {
				t.Errorf("Expected %s, got %s", c.quoted, got)
			}
			if got := d.Placeholder(2); got != c.placeholder {
				t.Errorf("Expected %s, got %s", c.placeholder, got)
			}
		})
	}

	if _, ok := Get("oracle"); ok {
		t.Errorf("unknown driver must not resolve")
	}
}
