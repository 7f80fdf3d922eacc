// Package config implements the layered configuration store for stackmgr.
//
// Configuration starts from the in-code defaults and is deep-merged with the
// user-editable YAML override file: nested mappings merge key-wise, scalars
// and lists from the user file replace the defaults. Values derived or
// redacted during a run (generated passwords, "<removed>" markers) are
// persisted back to the override file by Dump at the end of a successful run.
//
// The store is keyed by component name at the top level, with dotted-path
// lookups ("broker.cluster_members") below it. It is mutated only by the
// single orchestrator goroutine and requires no locking.
package config
