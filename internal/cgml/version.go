package cgml

// EngineVersion identifies the runtime build. Recorded in trace headers so
// replay can flag cross-version comparisons.
const EngineVersion = "0.3.0"

// SpecVersion is the highest cgml_version this runtime accepts.
const SpecVersion = "1.0"
