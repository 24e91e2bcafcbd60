package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDotEnv(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	return path
}

func TestLoadDotEnv_LoadsValuesAndIgnoresNoise(t *testing.T) {
	t.Setenv("DB_PATH", "")
	t.Setenv("CALC_WORKERS", "")
	t.Setenv("DEFAULT_CURRENCY", "")

	path := writeDotEnv(t, `
# comment

DB_PATH=/tmp/quotes.db
export CALC_WORKERS=4
DEFAULT_CURRENCY="USD"
`)

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}

	for key, want := range map[string]string{
		"DB_PATH":          "/tmp/quotes.db",
		"CALC_WORKERS":     "4",
		"DEFAULT_CURRENCY": "USD",
	} {
		if got := os.Getenv(key); got != want {
			t.Fatalf("%s=%q, want %q", key, got, want)
		}
	}
}

func TestLoadDotEnv_DoesNotOverwriteExistingEnv(t *testing.T) {
	t.Setenv("PORT", "9090")

	if err := loadDotEnv(writeDotEnv(t, "PORT=8081\n")); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}

	if got := os.Getenv("PORT"); got != "9090" {
		t.Fatalf("PORT=%q, want %q", got, "9090")
	}
}

func TestLoadDotEnv_StripsSingleQuotes(t *testing.T) {
	t.Setenv("APP_ENV", "")

	if err := loadDotEnv(writeDotEnv(t, "APP_ENV='staging env'\n")); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}

	if got := os.Getenv("APP_ENV"); got != "staging env" {
		t.Fatalf("APP_ENV=%q, want %q", got, "staging env")
	}
}

func TestLoadDotEnv_MissingFileIsIgnored(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
}
