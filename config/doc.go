// Package config supplies the static inputs a crew session starts from:
// built-in agent personas, pre-assembled crew templates, a YAML loader for
// user-defined agent rosters, and a TOML loader for runtime tuning.
package config
