package arkive

// ProgressEvent represents a progress update during a build.
type ProgressEvent struct {
	// Stage identifies the current phase of the build.
	Stage ProgressStage

	// Path is the entry currently being processed, if applicable.
	Path string

	// FilesDone is the number of entries completed.
	FilesDone int

	// FilesTotal is the total number of entries.
	// Zero indicates the total is unknown (e.g., while gathering).
	FilesTotal int
}

// ProgressStage identifies the current phase of a build.
type ProgressStage uint8

// Progress stages of a build.
const (
	// StageGathering indicates source collections are being enumerated.
	StageGathering ProgressStage = iota

	// StageScanning indicates the existing destination is being scanned.
	StageScanning

	// StageWriting indicates entries are being written.
	StageWriting
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageGathering:
		return "gathering"
	case StageScanning:
		return "scanning"
	case StageWriting:
		return "writing"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during a build.
type ProgressFunc func(ProgressEvent)
