// Package config loads, normalizes, and validates intake's TOML
// configuration. Defaults are layered first, then values from the config
// file, then environment fallbacks for secrets.
package config
