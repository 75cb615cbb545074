package errors

// ErrorCode identifies a class of failure, e.g. "init_history_failed".
type ErrorCode string

// String implements the Stringer interface
func (c ErrorCode) String() string {
	return string(c)
}

// Error is a coded error carrying an optional cause and payload
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory creates coded errors
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
