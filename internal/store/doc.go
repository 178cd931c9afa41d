// Package store provides SQLite-backed storage for the field revision
// audit log.
//
// The log is split across two tables: revision_header holds one row per
// tracked field-change event (page, field, user), and revision_data holds
// the property/value payload for each header row. A multi-language field
// value produces several data rows under a single header.
//
// The schema is owned by the revision module, not the connection: Open
// only configures pragmas, and the module's Install/Uninstall drive
// CreateSchema and DropSchema.
package store
