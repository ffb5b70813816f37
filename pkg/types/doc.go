// Package types defines the Note entity, the Backend persistence contract,
// configuration, and the standard errors shared by every jotter component.
package types
