// Package secret resolves the credential values found in configuration.
//
// A value may contain ${VAR} references, which must all be set, and may be
// or contain a reference of the form secretref:<provider>:<ref>:
//
//	token: secretref:env:DDB_TOKEN
//	token: secretref:file:/run/secrets/ddb-token
//	cookie: "CobaltSession=secretref:env:DDB_COBALT"
//
// The env and file providers are registered in DefaultRegistry.
package secret
