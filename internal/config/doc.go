// Package config defines the configuration tree for inventoryd.
//
// Configuration is organized into logical sections (Service, Storage,
// Probe) plus logging knobs. Defaults come from creasty/defaults struct
// tags; a YAML file and INVENTORYD_* environment variables layer on top
// via viper.
//
// # Service
//
//	┌─────────────┬─────────┬────────────────────────────────────────┐
//	│ Field       │ Default │ Description                            │
//	├─────────────┼─────────┼────────────────────────────────────────┤
//	│ Mode        │ "dev"   │ HTTP server mode: "prod" or "dev"      │
//	│ HTTPPort    │ 8080    │ HTTP listen port                       │
//	│ NumWorkers  │ 3       │ Worker pool size for bulk discovery    │
//	└─────────────┴─────────┴────────────────────────────────────────┘
//
// # Storage
//
//	┌──────────┬────────────┬─────────────────────────────────────────┐
//	│ Field    │ Default    │ Description                             │
//	├──────────┼────────────┼─────────────────────────────────────────┤
//	│ Backend  │ "embedded" │ "embedded" (single file) or "server"    │
//	│ Embedded │            │ File path of the embedded database      │
//	│ Server   │            │ Host/port/credentials/database + pool   │
//	└──────────┴────────────┴─────────────────────────────────────────┘
//
// # Probe
//
// SSH settings and the target list for the discovery prober: username,
// port, password or private key path, per-host timeout, and the
// hostname/address pairs to inspect.
package config
