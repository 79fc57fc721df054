// Package secret resolves credentials referenced from configuration.
//
// Values are first expanded strictly against the environment (see
// ExpandEnv), then any secret references are replaced by provider lookups.
// A reference has the form secretref:<provider>:<ref> and may make up the
// whole value or appear inline:
//
//	password: secretref:file:redis_password
//	dsn: postgres://healthops:secretref:env:PG_PASSWORD@db:5432/papers
//
// Two providers are built in: "env" reads an environment variable and
// "file" reads a file from a secrets directory such as /run/secrets.
package secret
