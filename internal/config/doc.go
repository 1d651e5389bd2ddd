// Package config provides configuration management for the JSON-UPnP proxy.
//
// The configuration is a YAML file stored in a platform-appropriate location:
//   - Linux: $XDG_CONFIG_HOME/jsonupnp/config.yaml or $HOME/.config/jsonupnp/config.yaml
//   - macOS: $HOME/.config/jsonupnp/config.yaml
//   - Windows: %LOCALAPPDATA%\jsonupnp\config.yaml
//
// A missing file is not an error: Load returns Default(). Keys left out of
// the file keep their default values.
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.HTTP.Port) // 5030 unless overridden
//
// Save writes through a temporary file and a rename, so a crash never
// leaves a half-written config behind.
package config
