package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Load() = %+v, want defaults %+v", cfg, Default())
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    func(Config) Config
		wantErr bool
	}{
		{
			name:    "json",
			file:    "config.json",
			content: `{"needle": "Other needle", "arch": "arm64", "limits": {"max": 2032, "min": -2032}}`,
			want: func(c Config) Config {
				c.Needle = "Other needle"
				c.Arch = "arm64"
				c.Limits = BuildLimits{Max: 2032, Min: -2032}
				return c
			},
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: `codeSection: .text.hot
dataSections: [.rdata]
debug: true
limits:
  max: 512
  min: -128
`,
			want: func(c Config) Config {
				c.CodeSection = ".text.hot"
				c.DataSections = []string{".rdata"}
				c.Debug = true
				c.Limits = BuildLimits{Max: 512, Min: -128}
				return c
			},
		},
		{
			name:    "yml with empty fields keeps defaults",
			file:    "config.yml",
			content: "logToFile: true\n",
			want: func(c Config) Config {
				c.LogToFile = true
				return c
			},
		},
		{
			name:    "malformed json",
			file:    "config.json",
			content: `{"needle": `,
			wantErr: true,
		},
		{
			name:    "inverted limits",
			file:    "config.json",
			content: `{"limits": {"max": -64, "min": 320}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, tt.file), []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			cfg, err := Load(dir)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if want := tt.want(Default()); !reflect.DeepEqual(cfg, want) {
				t.Errorf("Load() = %+v, want %+v", cfg, want)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	cfg := Default()
	cfg.Target = "libgame.so"
	cfg.Limits = BuildLimits{Max: 1024, Min: -512}

	if err := Save(dir, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("round trip = %+v, want %+v", got, cfg)
	}
}

func TestDir(t *testing.T) {
	t.Setenv(DirEnv, "/custom/dir")
	if dir, err := Dir(); err != nil || dir != "/custom/dir" {
		t.Errorf("Dir() = %q, %v", dir, err)
	}

	t.Setenv(DirEnv, "")
	orig := roamingDir
	t.Cleanup(func() { roamingDir = orig })
	roamingDir = func() (string, bool) { return "", false }
	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	exe, _ := os.Executable()
	if dir != filepath.Dir(exe) {
		t.Errorf("Dir() = %q, want executable dir %q", dir, filepath.Dir(exe))
	}
}

func TestDirPrefersRoamingProfile(t *testing.T) {
	roaming := filepath.Join(t.TempDir(), AppDir)
	if err := os.Mkdir(roaming, 0o755); err != nil {
		t.Fatal(err)
	}
	orig := roamingDir
	t.Cleanup(func() { roamingDir = orig })
	roamingDir = func() (string, bool) { return existingDir(roaming) }

	t.Setenv(DirEnv, "")
	if dir, err := Dir(); err != nil || dir != roaming {
		t.Errorf("Dir() = %q, %v; want %q", dir, err, roaming)
	}

	t.Setenv(DirEnv, "/custom/dir")
	if dir, _ := Dir(); dir != "/custom/dir" {
		t.Errorf("env override lost to roaming dir: %q", dir)
	}
}

func TestExistingDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.json")
	if err := os.WriteFile(file, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		ok   bool
	}{
		{"directory", dir, true},
		{"file", file, false},
		{"missing", filepath.Join(dir, "missing"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := existingDir(tt.path); ok != tt.ok {
				t.Errorf("existingDir(%q) ok = %v, want %v", tt.path, ok, tt.ok)
			}
		})
	}
}

func TestBuildLimitsPack(t *testing.T) {
	tests := []struct {
		limits BuildLimits
		packed int32
	}{
		{BuildLimits{Max: 320, Min: -64}, 0x0140FFC0},
		{BuildLimits{Max: 0, Min: 0}, 0},
		{BuildLimits{Max: -1, Min: -1}, -1},
		{BuildLimits{Max: 32767, Min: -32768}, 0x7FFF8000},
		{BuildLimits{Max: -32768, Min: 1}, -0x7FFFFFFF},
	}
	for _, tt := range tests {
		t.Run(tt.limits.String(), func(t *testing.T) {
			if got := tt.limits.Pack(); got != tt.packed {
				t.Errorf("Pack() = %#x, want %#x", got, tt.packed)
			}
			if got := Split(tt.packed); got != tt.limits {
				t.Errorf("Split(%#x) = %+v, want %+v", tt.packed, got, tt.limits)
			}
		})
	}
}
