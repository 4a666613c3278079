// Package log provides slog handlers that keep ArcGIS credentials out of
// log output.
//
// ArcGIS secured services authenticate with a "token" query parameter, so
// credentials leak into logs through ordinary URL attributes, not just
// through obviously named keys. The SecureHandler masks both:
//   - attributes whose key names a credential (token, authorization, cookie)
//   - token, password and key query parameters embedded in URL strings
//   - bearer and JWT values regardless of key
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("fetching layer",
//	    "url", "https://host/arcgis/rest/services/X/MapServer/0?token=abc", // token masked
//	)
//	slog.SetDefault(logger)
package log
