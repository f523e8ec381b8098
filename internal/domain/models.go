package domain

// NoIndex marks an unset playlist cursor
const NoIndex = -1

// MetadataState is the extraction state of the current file
type MetadataState string

const (
	// StateIdle means no file has been requested
	StateIdle MetadataState = "Idle"
	// StateExtracting means the probe is loading the requested file
	StateExtracting MetadataState = "Extracting"
	// StateReady means the record holds the tags of the requested file
	StateReady MetadataState = "Ready"
)

// MetadataRecord holds the display metadata of the current file
type MetadataRecord struct {
	Title  string
	Artist string
	Album  string
	// CoverArtKey is the cover cache key, empty when the file has no embedded image
	CoverArtKey string
}

// ProbeStatus is a lifecycle status reported by a MediaProbe
type ProbeStatus string

const (
	ProbeNoMedia ProbeStatus = "NoMedia"
	ProbeLoading ProbeStatus = "Loading"
	ProbeLoaded  ProbeStatus = "Loaded"
	ProbeInvalid ProbeStatus = "Invalid"
)

// ProbeStatusEvent is delivered on the control loop whenever a probe changes status.
// Source is the path the probe was loading when the status was produced.
type ProbeStatusEvent struct {
	Source string
	Status ProbeStatus
}

// ProbeTags are the raw tag fields exposed by a probe once loaded
type ProbeTags struct {
	Title              string
	Album              string
	AlbumArtist        string
	ContributingArtist string
}

// EventKind identifies an event published to the presentation layer
type EventKind string

const (
	EventPlaylistChanged  EventKind = "playlistChanged"
	EventMetadataChanged  EventKind = "metadataChanged"
	EventFileReceived     EventKind = "fileReceivedFromAnotherInstance"
	EventSystemResumed    EventKind = "systemResumed"
	EventSystemSuspending EventKind = "systemSuspending"
)

// Event is a state-change notification. Path is only set for EventFileReceived.
type Event struct {
	Kind EventKind
	Path string
}

// PowerEvent is a system sleep transition
type PowerEvent string

const (
	// PowerSuspending is sent right before the system goes to sleep
	PowerSuspending PowerEvent = "Suspending"
	// PowerResumed is sent once the system is back from sleep
	PowerResumed PowerEvent = "Resumed"
)
