package room

// OpError is a typed log-level failure, distinguished by kind rather than
// message text so callers can branch without parsing strings — the same
// shape as the ConflictError pattern used for sync failures in the
// retrieved memoNexus conflict resolver.
type OpError struct {
	Kind    string
	Message string
}

func (e *OpError) Error() string { return e.Message }

var (
	ErrOperationNotFound = &OpError{Kind: "operation_not_found", Message: "room: operation not found"}
	ErrWrongState        = &OpError{Kind: "wrong_state", Message: "room: operation is not in the required state"}
	ErrRoomFull          = &OpError{Kind: "room_full", Message: "room: membership at capacity"}
	ErrImportMismatch    = &OpError{Kind: "import_mismatch", Message: "room: exported log belongs to a different room"}
)

// IsOpError reports whether err is a *OpError of the given kind.
func IsOpError(err error, kind string) bool {
	oe, ok := err.(*OpError)
	return ok && oe.Kind == kind
}
