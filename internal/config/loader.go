package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".arcrest2shp"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile reads a .arcrest2shp file. Unknown keys are rejected.
// Service keys may be host names or pasted URLs; both are reduced to the
// lower-case host.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if cf.Defaults.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("defaults: %w", ErrInvalidRate)
	}

	services := make(map[string]ServiceConfig, len(cf.Services))
	for key, svc := range cf.Services {
		host := serviceHost(key)
		if host == "" {
			return nil, fmt.Errorf("services: empty host in key %q", key)
		}
		if _, dup := services[host]; dup {
			return nil, fmt.Errorf("services: %s is configured twice", host)
		}
		if svc.RequestsPerSecond < 0 {
			return nil, fmt.Errorf("services.%s: %w", host, ErrInvalidRate)
		}
		services[host] = svc
	}
	cf.Services = services

	return &cf, nil
}

// serviceHost reduces "https://GIS.example.com/arcgis/rest" or
// "gis.example.com:443" to "gis.example.com".
func serviceHost(key string) string {
	key = strings.TrimSpace(key)
	if !strings.Contains(key, "://") {
		key = "//" + key
	}
	u, err := url.Parse(key)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// FindConfigFile returns configPath when it exists. With no configPath it
// looks for .arcrest2shp in the working directory, then in the home
// directory. It returns "" when nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if fileExists(configPath) {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	for _, c := range candidates {
		if fileExists(c) {
			return c
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
