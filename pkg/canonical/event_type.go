package canonical

// EventType classifies an announcement event.
type EventType string

const (
	// EventTypeNew announces the first version of an e-print.
	EventTypeNew EventType = "new"
	// EventTypeReplace announces a subsequent version of an e-print.
	EventTypeReplace EventType = "replace"
	// EventTypeUpdate mutates an existing version in place, content
	// included.
	EventTypeUpdate EventType = "update"
	// EventTypeUpdateMetadata mutates the descriptive metadata of an
	// existing version; the event carries no bitstreams.
	EventTypeUpdateMetadata EventType = "update_metadata"
	// EventTypeCross adds a secondary classification to an existing
	// version.
	EventTypeCross EventType = "cross"
	// EventTypeWithdraw announces a new version marked as withdrawn.
	EventTypeWithdraw EventType = "withdraw"
	// EventTypeMigrate rewrites an existing version during a migration
	// from the legacy record.
	EventTypeMigrate EventType = "migrate"
	// EventTypeMigrateMetadata rewrites only the metadata of an existing
	// version during a migration.
	EventTypeMigrateMetadata EventType = "migrate_metadata"
	// EventTypeJRef attaches a journal reference to an existing version.
	EventTypeJRef EventType = "jref"
)

// EventTypes lists every valid event type in serialization order.
func EventTypes() []EventType {
	return []EventType{
		EventTypeNew,
		EventTypeReplace,
		EventTypeUpdate,
		EventTypeUpdateMetadata,
		EventTypeCross,
		EventTypeWithdraw,
		EventTypeMigrate,
		EventTypeMigrateMetadata,
		EventTypeJRef,
	}
}

// String returns the serialized enum value.
func (t EventType) String() string { return string(t) }

// IsValid reports whether t is one of the known event types.
func (t EventType) IsValid() bool {
	switch t {
	case EventTypeNew, EventTypeReplace, EventTypeUpdate,
		EventTypeUpdateMetadata, EventTypeCross, EventTypeWithdraw,
		EventTypeMigrate, EventTypeMigrateMetadata, EventTypeJRef:
		return true
	}
	return false
}

// IsNewVersion reports whether the event creates a new version of the
// e-print. New, replace and withdraw events increment the version
// counter; every other type mutates an existing version.
func (t EventType) IsNewVersion() bool {
	switch t {
	case EventTypeNew, EventTypeReplace, EventTypeWithdraw:
		return true
	}
	return false
}

// IsMetadataOnly reports whether the event must not carry source or
// render content.
func (t EventType) IsMetadataOnly() bool {
	switch t {
	case EventTypeUpdateMetadata, EventTypeCross, EventTypeMigrateMetadata, EventTypeJRef:
		return true
	}
	return false
}
