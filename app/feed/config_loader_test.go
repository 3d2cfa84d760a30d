package feed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigLoader_URLsOnly(t *testing.T) {
	loader := NewConfigLoader("")

	configs, err := loader.Run([]string{"https://a.example.com/feed", "https://b.example.com/feed", "https://a.example.com/feed"})
	if err != nil {
		t.Fatal(err)
	}

	if len(configs) != 2 {
		t.Fatalf("Expected 2 configs, got %d", len(configs))
	}
	if configs[0].URL != "https://a.example.com/feed" || configs[1].URL != "https://b.example.com/feed" {
		t.Errorf("Expected configured order to be kept, got %s, %s", configs[0].URL, configs[1].URL)
	}
	if !configs[0].Settings.Enabled {
		t.Error("Expected URL feeds to be enabled")
	}
	if configs[0].Settings.ExtractContent != nil {
		t.Error("Expected URL feeds to use the global content setting")
	}
}

func TestConfigLoader_LoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()

	writeConfig(t, tempDir, "tech.yml", `
url: "https://example.com/feed.xml"
source: "Tech Weekly"

settings:
  max_items: 25
  extract_content: false

filters:
  - field: "title"
    includes:
      - "technology"
    excludes:
      - "spam"
`)
	writeConfig(t, tempDir, "another.yaml", `
url: "https://another.example.com/rss"
settings:
  enabled: false
`)

	loader := NewConfigLoader(tempDir)
	configs, err := loader.Run([]string{"https://env.example.com/feed"})
	if err != nil {
		t.Fatal(err)
	}

	if len(configs) != 3 {
		t.Fatalf("Expected 3 configs, got %d", len(configs))
	}

	if configs[0].URL != "https://env.example.com/feed" {
		t.Errorf("Expected environment feeds first, got %s", configs[0].URL)
	}

	another := configs[1]
	if another.Name != "another" {
		t.Errorf("Expected name 'another', got '%s'", another.Name)
	}
	if another.Settings.Enabled {
		t.Error("Expected 'another' to be disabled")
	}

	tech := configs[2]
	if tech.Name != "tech" {
		t.Errorf("Expected name 'tech', got '%s'", tech.Name)
	}
	if !tech.Settings.Enabled {
		t.Error("Expected feeds to be enabled by default")
	}
	if tech.Source != "Tech Weekly" {
		t.Errorf("Expected source 'Tech Weekly', got '%s'", tech.Source)
	}
	if tech.Settings.MaxItems != 25 {
		t.Errorf("Expected max items 25, got %d", tech.Settings.MaxItems)
	}
	if tech.Settings.ExtractContent == nil || *tech.Settings.ExtractContent {
		t.Error("Expected content extraction to be disabled explicitly")
	}
	if len(tech.Filters) != 1 {
		t.Errorf("Expected 1 filter, got %d", len(tech.Filters))
	}
}

func TestConfigLoader_InvalidConfigs(t *testing.T) {
	tests := map[string]string{
		"missing url": `
settings:
  enabled: true
`,
		"invalid filter field": `
url: "https://example.com/feed.xml"
filters:
  - field: "invalid_field"
    includes: ["x"]
`,
		"empty filter": `
url: "https://example.com/feed.xml"
filters:
  - field: "title"
`,
		"negative max items": `
url: "https://example.com/feed.xml"
settings:
  max_items: -1
`,
		"broken yaml": "url: [unterminated",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			tempDir := t.TempDir()
			writeConfig(t, tempDir, "feed.yml", content)

			_, err := NewConfigLoader(tempDir).Run(nil)
			if err == nil {
				t.Error("Expected error for invalid config")
			}
		})
	}
}

func TestConfigLoader_MissingDirectory(t *testing.T) {
	_, err := NewConfigLoader(filepath.Join(t.TempDir(), "nope")).Run(nil)
	if err == nil || !strings.Contains(err.Error(), "feeds directory") {
		t.Errorf("Expected feeds directory error, got: %v", err)
	}
}
