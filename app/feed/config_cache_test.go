package feed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigCacheLoadValidConfig(t *testing.T) {
	// Create temp directory
	tempDir := t.TempDir()

	// Create test YAML file
	content := `
url: "https://example.com/calendar.ics"

settings:
  enabled: true
  refresh_interval: 1800
  max_items: 25
  timeout: 15
  extract_details: true
`

	err := os.WriteFile(filepath.Join(tempDir, "test.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	// Load feedConfig
	configCache := NewConfigCache(tempDir)
	err = configCache.Run()
	if err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 1 {
		t.Errorf("Expected 1 feedConfig, got %d", configCache.GetConfigCount())
	}

	// Get the feedConfig by name
	feedConfig, err := configCache.GetConfig("test")
	if err != nil {
		t.Fatal(err)
	}

	// Validate loaded values
	if feedConfig.Name != "test" {
		t.Errorf("Expected name 'test', got '%s'", feedConfig.Name)
	}
	if feedConfig.URL != "https://example.com/calendar.ics" {
		t.Errorf("Expected URL 'https://example.com/calendar.ics', got '%s'", feedConfig.URL)
	}
	if time.Duration(feedConfig.Settings.RefreshInterval)*time.Second != 1800*time.Second {
		t.Errorf("Expected refresh interval 1800s, got %v", time.Duration(feedConfig.Settings.RefreshInterval)*time.Second)
	}
	if feedConfig.Settings.MaxItems != 25 {
		t.Errorf("Expected max items 25, got %d", feedConfig.Settings.MaxItems)
	}
	if !feedConfig.Settings.ExtractDetails {
		t.Error("Expected extract_details to be enabled")
	}
}

func TestConfigCacheLoadConfigWithDefaults(t *testing.T) {
	// Create temp directory
	tempDir := t.TempDir()

	// Create minimal test YAML file
	content := `
url: "https://example.com/calendar.ics"

settings:
  enabled: true
`

	err := os.WriteFile(filepath.Join(tempDir, "test.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	// Load feedConfig
	configCache := NewConfigCache(tempDir)
	err = configCache.Run()
	if err != nil {
		t.Fatal(err)
	}

	// Get the feedConfig by name
	feedConfig, err := configCache.GetConfig("test")
	if err != nil {
		t.Fatal(err)
	}

	// Validate default values
	if time.Duration(feedConfig.Settings.RefreshInterval)*time.Second != 3600*time.Second {
		t.Errorf("Expected default refresh interval 3600s, got %v", time.Duration(feedConfig.Settings.RefreshInterval)*time.Second)
	}
	if feedConfig.Settings.MaxItems != 100 {
		t.Errorf("Expected default max items 100, got %d", feedConfig.Settings.MaxItems)
	}
	if feedConfig.Settings.Timeout != 30 {
		t.Errorf("Expected default timeout 30, got %d", feedConfig.Settings.Timeout)
	}
	if feedConfig.Settings.ExtractDetails {
		t.Error("Expected extract_details to default to false")
	}
}

func TestConfigCacheInvalidConfig(t *testing.T) {
	// Create temp directory
	tempDir := t.TempDir()

	// Create invalid YAML file (missing feed URL)
	content := `
settings:
  enabled: true
`

	err := os.WriteFile(filepath.Join(tempDir, "invalid.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	// Load feedConfig
	configCache := NewConfigCache(tempDir)
	err = configCache.Run()
	if err == nil {
		t.Error("Expected error for invalid feedConfig")
	}
}

func TestConfigCacheEmptyDirectory(t *testing.T) {
	// Create temp directory
	tempDir := t.TempDir()

	// Load from empty directory
	configCache := NewConfigCache(tempDir)
	err := configCache.Run()
	if err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 0 {
		t.Errorf("Expected 0 feedConfigs from empty directory, got %d", configCache.GetConfigCount())
	}
}

func TestConfigCacheMissingDirectory(t *testing.T) {
	configCache := NewConfigCache("/nonexistent/path/to/feeds")
	err := configCache.Run()
	if err != nil {
		t.Fatalf("Expected missing directory to be tolerated, got: %v", err)
	}

	if configCache.GetConfigCount() != 0 {
		t.Errorf("Expected 0 feedConfigs, got %d", configCache.GetConfigCount())
	}
}

func TestConfigCacheReloadConfig(t *testing.T) {
	// Create temp directory
	tempDir := t.TempDir()

	// Create initial test YAML file
	initialContent := `
url: "https://example.com/calendar.ics"

settings:
  enabled: true
`

	configFile := filepath.Join(tempDir, "test.yml")
	err := os.WriteFile(configFile, []byte(initialContent), 0644)
	if err != nil {
		t.Fatal(err)
	}

	// Load initial config
	configCache := NewConfigCache(tempDir)
	err = configCache.Run()
	if err != nil {
		t.Fatal(err)
	}

	// Verify initial config can be loaded
	_, err = configCache.GetConfig("test")
	if err != nil {
		t.Fatal(err)
	}

	// Update the file on disk with new content
	updatedContent := `
url: "https://example.com/new-calendar.ics"

settings:
  enabled: true
  max_items: 50
`

	err = os.WriteFile(configFile, []byte(updatedContent), 0644)
	if err != nil {
		t.Fatal(err)
	}

	// Reload config from disk
	reloadedConfig, err := configCache.LoadConfig("test")
	if err != nil {
		t.Fatal(err)
	}

	if reloadedConfig.URL != "https://example.com/new-calendar.ics" {
		t.Errorf("Expected updated URL 'https://example.com/new-calendar.ics', got '%s'", reloadedConfig.URL)
	}
	if reloadedConfig.Settings.MaxItems != 50 {
		t.Errorf("Expected updated max_items 50, got %d", reloadedConfig.Settings.MaxItems)
	}

	// Test loading non-existent config
	_, err = configCache.LoadConfig("nonexistent")
	if err == nil {
		t.Error("Expected error for non-existent config")
	}

	// Test loading invalid config
	invalidContent := `invalid yaml content`
	err = os.WriteFile(configFile, []byte(invalidContent), 0644)
	if err != nil {
		t.Fatal(err)
	}

	_, err = configCache.LoadConfig("test")
	if err == nil {
		t.Error("Expected error for invalid config file")
	}
}

func TestConfigCacheGetConfigs(t *testing.T) {
	// Create temp directory
	tempDir := t.TempDir()

	// Create multiple test YAML files
	configs := []struct {
		filename string
		content  string
	}{
		{
			"feed1.yml",
			`
url: "https://example.com/calendar1.ics"
settings:
  enabled: true
`,
		},
		{
			"feed2.yml",
			`
url: "https://example.com/calendar2.ics"
settings:
  enabled: false
`,
		},
	}

	for _, config := range configs {
		err := os.WriteFile(filepath.Join(tempDir, config.filename), []byte(config.content), 0644)
		if err != nil {
			t.Fatal(err)
		}
	}

	// Load feedConfigs
	configCache := NewConfigCache(tempDir)
	err := configCache.Run()
	if err != nil {
		t.Fatal(err)
	}

	// Get all configs
	allConfigs := configCache.GetConfigs()
	if len(allConfigs) != 2 {
		t.Errorf("Expected 2 configs, got %d", len(allConfigs))
	}

	// Only feed1 is enabled
	enabledConfigs := configCache.GetEnabledConfigs()
	if len(enabledConfigs) != 1 {
		t.Errorf("Expected 1 enabled config, got %d", len(enabledConfigs))
	}
	if _, ok := enabledConfigs["feed1"]; !ok {
		t.Error("Expected 'feed1' in enabled configs")
	}

	// Verify it's a copy (modifying returned map shouldn't affect cache)
	delete(allConfigs, "feed1")
	if configCache.GetConfigCount() != 2 {
		t.Error("Modifying returned configs map affected the cache")
	}
}

// Validation tests

func TestConfigCacheValidateConfigNil(t *testing.T) {
	configCache := NewConfigCache("")
	err := configCache.validateConfig(nil)
	if err == nil {
		t.Error("Expected error for nil feedConfig, got none")
	}
}

func TestConfigCacheValidateConfigRequiredFields(t *testing.T) {
	configCache := NewConfigCache("")

	// Test with empty feed name
	feedConfig := &Config{
		Name: "",
		URL:  "https://example.com/calendar.ics",
	}
	err := configCache.validateConfig(feedConfig)
	if err == nil {
		t.Error("Expected error for empty feed name, got none")
	}

	// Test with empty URL
	feedConfig.Name = "test-feed"
	feedConfig.URL = ""
	err = configCache.validateConfig(feedConfig)
	if err == nil {
		t.Error("Expected error for empty URL, got none")
	}
}

func TestConfigCacheValidateConfigNegativeValues(t *testing.T) {
	configCache := NewConfigCache("")

	feedConfig := &Config{
		Name: "test-feed",
		URL:  "https://example.com/calendar.ics",
	}

	// Test with negative refresh interval
	feedConfig.Settings.RefreshInterval = -1
	err := configCache.validateConfig(feedConfig)
	if err == nil {
		t.Error("Expected error for negative refresh interval, got none")
	}

	// Test with negative max items
	feedConfig.Settings.RefreshInterval = 3600
	feedConfig.Settings.MaxItems = -1
	err = configCache.validateConfig(feedConfig)
	if err == nil {
		t.Error("Expected error for negative max items, got none")
	}

	// Test with negative timeout
	feedConfig.Settings.MaxItems = 100
	feedConfig.Settings.Timeout = -1
	err = configCache.validateConfig(feedConfig)
	if err == nil {
		t.Error("Expected error for negative timeout, got none")
	}
}

func TestConfigCacheGetConfig(t *testing.T) {
	// Create temp directory
	tempDir := t.TempDir()

	content := `
url: "https://example.com/calendar.ics"
settings:
  enabled: true
`
	err := os.WriteFile(filepath.Join(tempDir, "homeroom.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	// Load configs
	configCache := NewConfigCache(tempDir)
	err = configCache.Run()
	if err != nil {
		t.Fatal(err)
	}

	// Test getting existing feed by name
	feedConfig, err := configCache.GetConfig("homeroom")
	if err != nil {
		t.Fatalf("Expected no error for existing feed name, got: %v", err)
	}
	if feedConfig.Name != "homeroom" {
		t.Errorf("Expected feed name 'homeroom', got '%s'", feedConfig.Name)
	}

	// Test getting non-existent feed by name
	_, err = configCache.GetConfig("non-existent-feed")
	if err == nil {
		t.Error("Expected error for non-existent feed name, got none")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected error message to contain 'not found', got: %v", err)
	}

	// Feed names are case sensitive
	_, err = configCache.GetConfig("HOMEROOM")
	if err == nil {
		t.Error("Expected error for case-mismatched feed name, got none")
	}
}
