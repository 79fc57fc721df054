// Package config loads the healthopsd configuration.
//
// A configuration file is YAML. Before decoding, ${VAR} references are
// expanded strictly from the environment (after an optional .env file is
// loaded), so a missing variable fails the load instead of producing an
// empty value. Credential fields may also hold secretref:<provider>:<ref>
// references, resolved through the secret package.
//
// Unset fields keep the values from Default.
package config
