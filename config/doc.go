// Package config loads the toolgate process configuration from the
// environment.
//
// Every setting has a default; FromEnv overrides them from TOOLGATE_*
// variables and Validate rejects unusable combinations. The Redis password
// may be a ${VAR} expansion or a secretref (see package secret), so it
// never has to appear in the environment in clear text.
package config
