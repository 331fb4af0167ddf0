package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
  "scale_cm_per_pixel": 0.1,
  "edge_threshold_low": 80,
  "edge_threshold_high": 160,
  "blur_kernel_size": 7,
  "listen_addr": ":9000",
  "db_path": "census.db"
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := cfg.GetScaleCmPerPixel(); got != 0.1 {
		t.Errorf("GetScaleCmPerPixel() = %g, want 0.1", got)
	}
	if got := cfg.GetEdgeThresholdLow(); got != 80 {
		t.Errorf("GetEdgeThresholdLow() = %d, want 80", got)
	}
	if got := cfg.GetEdgeThresholdHigh(); got != 160 {
		t.Errorf("GetEdgeThresholdHigh() = %d, want 160", got)
	}
	if got := cfg.GetBlurKernelSize(); got != 7 {
		t.Errorf("GetBlurKernelSize() = %d, want 7", got)
	}
	if got := cfg.GetListenAddr(); got != ":9000" {
		t.Errorf("GetListenAddr() = %q, want \":9000\"", got)
	}
	if got := cfg.GetDBPath(); got != "census.db" {
		t.Errorf("GetDBPath() = %q, want \"census.db\"", got)
	}
}

func TestLoad_PartialConfigUsesDefaults(t *testing.T) {
	path := writeConfig(t, `{"scale_cm_per_pixel": 0.25}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := cfg.GetEdgeThresholdLow(); got != DefaultEdgeThresholdLow {
		t.Errorf("GetEdgeThresholdLow() = %d, want default %d", got, DefaultEdgeThresholdLow)
	}
	if got := cfg.GetEdgeThresholdHigh(); got != DefaultEdgeThresholdHigh {
		t.Errorf("GetEdgeThresholdHigh() = %d, want default %d", got, DefaultEdgeThresholdHigh)
	}
	if got := cfg.GetBlurKernelSize(); got != DefaultBlurKernelSize {
		t.Errorf("GetBlurKernelSize() = %d, want default %d", got, DefaultBlurKernelSize)
	}
	if got := cfg.GetListenAddr(); got != DefaultListenAddr {
		t.Errorf("GetListenAddr() = %q, want default %q", got, DefaultListenAddr)
	}
	if got := cfg.GetDBPath(); got != DefaultDBPath {
		t.Errorf("GetDBPath() = %q, want default %q", got, DefaultDBPath)
	}
	if got := cfg.GetSpeciesPath(); got != "" {
		t.Errorf("GetSpeciesPath() = %q, want empty", got)
	}
}

func TestLoad_EmptyDBPathDisablesPersistence(t *testing.T) {
	path := writeConfig(t, `{"scale_cm_per_pixel": 0.1, "db_path": ""}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.GetDBPath(); got != "" {
		t.Errorf("GetDBPath() = %q, want empty (persistence disabled)", got)
	}
}

func TestValidate_Rejections(t *testing.T) {
	scale := func(v float64) *float64 { return &v }
	num := func(v int) *int { return &v }

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing scale", Config{}},
		{"zero scale", Config{ScaleCmPerPixel: scale(0)}},
		{"negative scale", Config{ScaleCmPerPixel: scale(-0.1)}},
		{"zero low threshold", Config{ScaleCmPerPixel: scale(0.1), EdgeThresholdLow: num(0)}},
		{"negative high threshold", Config{ScaleCmPerPixel: scale(0.1), EdgeThresholdHigh: num(-5)}},
		{"low equals high", Config{ScaleCmPerPixel: scale(0.1), EdgeThresholdLow: num(150), EdgeThresholdHigh: num(150)}},
		{"low above high", Config{ScaleCmPerPixel: scale(0.1), EdgeThresholdLow: num(220), EdgeThresholdHigh: num(200)}},
		{"even kernel", Config{ScaleCmPerPixel: scale(0.1), BlurKernelSize: num(4)}},
		{"zero kernel", Config{ScaleCmPerPixel: scale(0.1), BlurKernelSize: num(0)}},
		{"negative kernel", Config{ScaleCmPerPixel: scale(0.1), BlurKernelSize: num(-3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestValidate_Accepts(t *testing.T) {
	scale := func(v float64) *float64 { return &v }
	num := func(v int) *int { return &v }

	tests := []struct {
		name string
		cfg  Config
	}{
		{"scale only", Config{ScaleCmPerPixel: scale(0.1)}},
		{"full thresholds", Config{ScaleCmPerPixel: scale(2.5), EdgeThresholdLow: num(50), EdgeThresholdHigh: num(150)}},
		{"kernel of one", Config{ScaleCmPerPixel: scale(0.1), BlurKernelSize: num(1)}},
		{"large odd kernel", Config{ScaleCmPerPixel: scale(0.1), BlurKernelSize: num(11)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestLoad_BadFiles(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
		if err == nil {
			t.Fatal("Load() = nil, want error")
		}
	})

	t.Run("wrong extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Load() = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		path := writeConfig(t, `{"scale_cm_per_pixel": `)
		_, err := Load(path)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Load() = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("valid json failing validation", func(t *testing.T) {
		path := writeConfig(t, `{"scale_cm_per_pixel": 0}`)
		_, err := Load(path)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Load() = %v, want ErrInvalidConfig", err)
		}
	})
}
