package lifecycle

// Phase of the upload
type Phase int

const (
	// Idle - nothing selected
	Idle Phase = iota
	// Selected - file chosen, metadata editable
	Selected
	// Uploading - bytes are being sent
	Uploading
	// Processing - all bytes sent, waiting for the transcript
	Processing
	// Done - transcript created
	Done
	// Error - failed, see message
	Error
)

var phaseNames = map[Phase]string{Idle: "idle", Selected: "selected", Uploading: "uploading",
	Processing: "processing", Done: "done", Error: "error"}

func (p Phase) String() string {
	return phaseNames[p]
}
