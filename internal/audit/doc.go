// Package audit keeps a persistent trail of config entry changes.
//
// Trail implements entry.Observer and writes one Record per created, updated
// or removed entry to the audit_logs table. The API serves the trail
// read-only through Repository.List.
package audit
