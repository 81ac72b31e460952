package configparser

import (
	"strings"
	"testing"
)

func TestFlatten(t *testing.T) {
	t.Setenv("TESTCFG_SECRET_SOURCE", "from-env")

	const doc = `
# nava config
database:
  host: db.internal   # primary
  port: "5432"
http:
  base_path: /nava
  allowed_origins:
    - http://localhost:3000
    - "https://app.example.com"
auth:
  jwt_secret: ${TESTCFG_SECRET_SOURCE:-fallback}
  other: ${TESTCFG_UNSET_VAR:-fallback}
log:
  level: INFO
`
	vars, err := flatten(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"DATABASE_HOST":        "db.internal",
		"DATABASE_PORT":        "5432",
		"HTTP_BASE_PATH":       "/nava",
		"HTTP_ALLOWED_ORIGINS": "http://localhost:3000,https://app.example.com",
		"AUTH_JWT_SECRET":      "from-env",
		"AUTH_OTHER":           "fallback",
		"LOG_LEVEL":            "INFO",
	}
	for k, v := range want {
		if vars[k] != v {
			t.Errorf("%s = %q, want %q", k, vars[k], v)
		}
	}
	if len(vars) != len(want) {
		t.Errorf("unexpected extra keys: %v", vars)
	}
}

func TestStripComment_KeepsQuotedHash(t *testing.T) {
	if got := stripComment(`color: "#fff" # white`); got != `color: "#fff" ` {
		t.Fatalf("got %q", got)
	}
}
