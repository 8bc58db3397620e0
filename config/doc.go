// Package config loads the dashboard authentication configuration from
// YAML, TOML or JSON and turns it into a gateAuth.Config, user records and
// Redis client options.
//
// Users follow the dashboard layout: {user, pass, apps, readOnly}, where
// each apps entry is either an app id string or an {appId: ...} object.
// Omitting apps grants every app; an empty list grants none.
package config
