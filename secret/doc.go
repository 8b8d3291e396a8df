// Package secret resolves secret-bearing configuration values.
//
// A value may contain ${VAR} references, expanded strictly (a missing
// variable is an error), and secret references of the form
//
//	secretref:<provider>:<ref>
//
// either as the whole value or inline. Two providers are built in: "env"
// reads a variable and "file" reads a file such as a mounted Kubernetes
// secret. Resolved values must never be logged.
package secret
