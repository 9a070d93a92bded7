package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PACKGENIE_FILE", "")
	t.Setenv("PACKGENIE_BASE_URL", "")
	t.Setenv("PACKGENIE_API_KEY", "")
	return home
}

func TestLoadConfig_MissingFile(t *testing.T) {
	withHome(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DefaultFile != DefaultPacksFile {
		t.Errorf("DefaultFile = %q, want %q", cfg.DefaultFile, DefaultPacksFile)
	}
	if cfg.Servers == nil {
		t.Error("Servers should be initialised")
	}
}

func TestInitAndSaveConfig(t *testing.T) {
	home := withHome(t)

	if err := InitConfig(); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}
	path := filepath.Join(home, ".packgenie", "config.yaml")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config perms = %v, want 0600", info.Mode().Perm())
	}

	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "default_file: packs.json") {
		t.Errorf("unexpected config:\n%s", raw)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DefaultServer != "local" || cfg.Servers["local"].BaseURL != "http://localhost:8080" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoadConfig_Malformed(t *testing.T) {
	home := withHome(t)
	dir := filepath.Join(home, ".packgenie")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("servers: [nope"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestResolvePacksFile(t *testing.T) {
	withHome(t)

	got, err := ResolvePacksFile("")
	if err != nil || got != DefaultPacksFile {
		t.Fatalf("default: got %q, %v", got, err)
	}

	if err := SaveConfig(&Config{DefaultFile: "catalogue/packs.json"}); err != nil {
		t.Fatal(err)
	}
	if got, _ := ResolvePacksFile(""); got != "catalogue/packs.json" {
		t.Errorf("config: got %q", got)
	}

	t.Setenv("PACKGENIE_FILE", "env.json")
	if got, _ := ResolvePacksFile(""); got != "env.json" {
		t.Errorf("env: got %q", got)
	}

	if got, _ := ResolvePacksFile("flag.json"); got != "flag.json" {
		t.Errorf("flag: got %q", got)
	}
}

func TestGetServerConfig(t *testing.T) {
	withHome(t)
	if err := SaveConfig(&Config{
		DefaultServer: "staging",
		Servers: map[string]ServerConfig{
			"staging": {BaseURL: "https://staging.example.com", APIKey: "stage-key"},
			"prod":    {BaseURL: "https://packs.example.com", APIKey: "prod-key"},
		},
	}); err != nil {
		t.Fatal(err)
	}

	srv, name, err := GetServerConfig("", "", "")
	if err != nil {
		t.Fatalf("default server: %v", err)
	}
	if name != "staging" || srv.APIKey != "stage-key" {
		t.Errorf("got %s %+v", name, srv)
	}

	srv, _, err = GetServerConfig("prod", "", "override")
	if err != nil {
		t.Fatal(err)
	}
	if srv.BaseURL != "https://packs.example.com" || srv.APIKey != "override" {
		t.Errorf("flag override not applied: %+v", srv)
	}

	srv, _, _ = GetServerConfig("", "http://direct", "direct-key")
	if srv.BaseURL != "http://direct" || srv.APIKey != "direct-key" {
		t.Errorf("direct flags: %+v", srv)
	}

	if _, _, err := GetServerConfig("missing", "", ""); err == nil {
		t.Error("expected error for unknown server")
	}
}

func TestGetServerConfig_EnvVars(t *testing.T) {
	withHome(t)
	t.Setenv("PACKGENIE_BASE_URL", "http://from-env")
	t.Setenv("PACKGENIE_API_KEY", "env-key")

	srv, _, err := GetServerConfig("", "", "")
	if err != nil {
		t.Fatalf("GetServerConfig: %v", err)
	}
	if srv.BaseURL != "http://from-env" || srv.APIKey != "env-key" {
		t.Errorf("got %+v", srv)
	}
}

func TestGetServerConfig_NoneConfigured(t *testing.T) {
	withHome(t)
	if _, _, err := GetServerConfig("", "", ""); err == nil {
		t.Fatal("expected error with no server configured")
	}
}
