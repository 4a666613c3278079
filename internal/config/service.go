package config

// ServiceConfig holds settings for a single ArcGIS REST host.
// This allows secured or rate-limited services to be crawled with their own
// credentials and politeness settings.
type ServiceConfig struct {
	// Token is an ArcGIS token appended as the "token" query parameter
	// to every request sent to this host.
	Token string `yaml:"token,omitempty"`

	// Headers are custom HTTP headers to include in requests to this host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// ContainerPatterns are URL substrings identifying container pages
	// that must not be treated as layers.
	ContainerPatterns []string `yaml:"containerPatterns,omitempty"`

	// IgnorePatterns are URL path glob patterns skipped during crawling.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL path glob patterns to follow during crawling.
	// If specified, only URLs matching these patterns are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// RequestsPerSecond overrides the global request rate for this host.
	RequestsPerSecond float64 `yaml:"requestsPerSecond,omitempty"`
}

// File represents the structure of the .arcrest2shp configuration file.
type File struct {
	// Services maps REST hosts (e.g., "services.slip.wa.gov.au") to their settings.
	Services map[string]ServiceConfig `yaml:"services,omitempty"`

	// Defaults apply to every host unless overridden in Services.
	Defaults ServiceConfig `yaml:"defaults,omitempty"`
}

// GetServiceConfig returns the configuration for a host, merging the
// host-specific entry over the defaults.
func (cf *File) GetServiceConfig(host string) ServiceConfig {
	result := cf.Defaults

	// Copy the default headers so merging never mutates cf.Defaults.
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	serviceConfig, ok := cf.Services[host]
	if !ok {
		return result
	}

	if serviceConfig.Token != "" {
		result.Token = serviceConfig.Token
	}
	if len(serviceConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range serviceConfig.Headers {
			result.Headers[k] = v
		}
	}
	if len(serviceConfig.ContainerPatterns) > 0 {
		result.ContainerPatterns = serviceConfig.ContainerPatterns
	}
	if len(serviceConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = serviceConfig.IgnorePatterns
	}
	if len(serviceConfig.FollowPatterns) > 0 {
		result.FollowPatterns = serviceConfig.FollowPatterns
	}
	if serviceConfig.RequestsPerSecond > 0 {
		result.RequestsPerSecond = serviceConfig.RequestsPerSecond
	}

	return result
}
