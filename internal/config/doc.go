// Package config loads, validates, and defaults voidbot's TOML configuration.
//
// Configuration resolves from an explicit --config path, then
// ~/.config/voidbot/config.toml, then ./voidbot.toml, falling back to
// built-in defaults when no file exists. Paths are tilde-expanded and made
// absolute during normalization so downstream components never deal with
// relative locations.
package config
