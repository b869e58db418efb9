package ir

// IRVersion is the schema version of the canonical document. It is part of
// every Program digest.
const IRVersion = "1"
