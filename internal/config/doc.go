// Package config handles configuration loading and defaults.
//
// Configuration is loaded from multiple sources in priority order:
// 1. Built-in defaults
// 2. User config file (~/.roadmap/roadmap.toml or OS-specific config directory)
// 3. Project config file (roadmap.toml or .roadmap.toml in the project root)
// 4. Environment variables (ROADMAP_*)
// 5. CLI flags
//
// Each level overrides the previous one, so CLI flags take precedence.
//
// User-level config locations:
// - ~/.roadmap/roadmap.toml (preferred)
// - Windows: %APPDATA%\roadmap\roadmap.toml
// - macOS: ~/Library/Application Support/roadmap/roadmap.toml
// - Linux/BSD: $XDG_CONFIG_HOME/roadmap/roadmap.toml or ~/.config/roadmap/roadmap.toml
//
// Project-level config locations (overrides user config):
// - ./roadmap.toml (preferred)
// - ./.roadmap.toml
package config
