package log

// Canonical field name constants for structured logging.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldNodeID    = "node_id"
	FieldRequestID = "request_id"

	FieldVideoID    = "video_id"
	FieldRangeStart = "range_start"
	FieldRangeEnd   = "range_end"
	FieldTotalSize  = "total_size"
	FieldTempPath   = "temp_path"
	FieldStatus     = "status"
	FieldDuration   = "duration"
)
