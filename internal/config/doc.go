// Package config provides configuration management for ytscope.
//
// Configuration is loaded from environment variables using the env package.
// Per-provider settings may also come from a TOML file named by
// YTSCOPE_PROVIDERS_FILE; environment values win, the file fills blanks.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("HTTP server will listen on %s\n", cfg.GetHTTPAddr())
package config
