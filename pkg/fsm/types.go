package fsm

// AttachRequest is the FSM input
type AttachRequest struct {
	DeviceName string
	Sources    []string
}

// AttachResponse is the FSM output (accumulated across transitions)
type AttachResponse struct {
	// From Stage
	StagedSources []string
	StagedBytes   int64

	// From Attach
	DeviceID     uint64
	TotalSectors uint64
	SizeKnown    bool

	// From Complete/Failed
	Status       string
	ErrorMessage string
}

// State names
const (
	StateCheckCatalog = "check_catalog"
	StateStage        = "stage"
	StateAttach       = "attach"
	StateComplete     = "complete"
	StateFailed       = "failed"
)

// Status values
const (
	StatusAttached = "attached"
	StatusFailed   = "failed"
)
