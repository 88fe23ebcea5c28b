package types

// Version is the canonical project version.
// The CLI, the stub backend and the published attempt events share it.
const Version = "0.3.0"

// EventContractVersion is the version stamped on published attempt events.
// It moves in lockstep with Version.
const EventContractVersion = Version
