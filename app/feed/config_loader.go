package feed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigLoader builds the ordered list of feeds to sync: the URLs given on
// the command line or in the environment first, then one YAML file per feed
// from feedsDir, sorted by file name.
type ConfigLoader struct {
	feedsDir string
}

func NewConfigLoader(feedsDir string) *ConfigLoader {
	return &ConfigLoader{feedsDir: feedsDir}
}

func (cl *ConfigLoader) Run(feedURLs []string) ([]*Config, error) {
	configs := make([]*Config, 0, len(feedURLs))
	seen := make(map[string]bool)

	for _, feedURL := range feedURLs {
		if seen[feedURL] {
			slog.Warn("Duplicate feed URL ignored", "url", feedURL)
			continue
		}
		seen[feedURL] = true
		configs = append(configs, &Config{
			Name:     feedURL,
			URL:      feedURL,
			Settings: ConfigSettings{Enabled: true},
		})
	}

	if cl.feedsDir == "" {
		return configs, nil
	}

	if _, err := os.Stat(cl.feedsDir); err != nil {
		return nil, fmt.Errorf("failed to read feeds directory: %w", err)
	}

	files, err := cl.configFiles()
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		feedConfig, err := cl.LoadConfig(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		if seen[feedConfig.URL] {
			slog.Warn("Duplicate feed URL ignored", "feed", feedConfig.Name, "url", feedConfig.URL)
			continue
		}
		seen[feedConfig.URL] = true

		slog.Debug("Configuration loaded", "feed", feedConfig.Name, "enabled", feedConfig.Settings.Enabled, "filters", len(feedConfig.Filters))
		configs = append(configs, feedConfig)
	}

	return configs, nil
}

func (cl *ConfigLoader) LoadConfig(configFile string) (*Config, error) {
	feedConfig, err := cl.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	// Derive feed name from filename
	fileName := filepath.Base(configFile)
	feedConfig.Name = strings.TrimSuffix(fileName, filepath.Ext(fileName))

	if err := cl.validateConfig(feedConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	return feedConfig, nil
}

func (cl *ConfigLoader) configFiles() ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matches, err := filepath.Glob(filepath.Join(cl.feedsDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to find YAML files: %w", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

func (cl *ConfigLoader) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	feedConfig := Config{Settings: ConfigSettings{Enabled: true}}
	if err := yaml.Unmarshal(data, &feedConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	feedConfig.URL = strings.TrimSpace(feedConfig.URL)

	return &feedConfig, nil
}

func (cl *ConfigLoader) validateConfig(feedConfig *Config) error {
	if feedConfig == nil {
		return fmt.Errorf("feedConfig is nil")
	}

	if feedConfig.URL == "" {
		return fmt.Errorf("feed URL is required")
	}

	if feedConfig.Settings.MaxItems < 0 {
		return fmt.Errorf("max items must be non-negative")
	}

	for i, filter := range feedConfig.Filters {
		if _, ok := filterFields[filter.Field]; !ok {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}
