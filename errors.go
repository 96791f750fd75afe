package daro

import "errors"

// Initialization stage failures. Initialize wraps the underlying cause
// with one of these; use errors.Is or Code to classify.
var (
	ErrAlreadyInitialized = errors.New("daro: already initialized")
	ErrCreateDevice       = errors.New("daro: create device")
	ErrCreateRenderTarget = errors.New("daro: create render target")
	ErrCreateShaders      = errors.New("daro: create shaders")
	ErrCreateGeometry     = errors.New("daro: create geometry")
	ErrCreateStaging      = errors.New("daro: create staging buffer")
	ErrCreateFrameBuffer  = errors.New("daro: create frame buffer")
	ErrLayerLayout        = errors.New("daro: layer record layout mismatch")
)

// Call-time failures.
var (
	// ErrNotInitialized is returned by every call made before Initialize
	// or after Shutdown.
	ErrNotInitialized = errors.New("daro: not initialized")

	// ErrInvalidArgument is returned for out-of-range indices, unknown
	// layer types and bad dimensions.
	ErrInvalidArgument = errors.New("daro: invalid argument")

	// ErrDeviceLost is returned by frame calls once the device is lost.
	// Only a successful RecoverDevice clears it.
	ErrDeviceLost = errors.New("daro: device lost")

	// ErrSchedulerTimeout is returned by Scheduler.Stop when the loop did
	// not exit in time.
	ErrSchedulerTimeout = errors.New("daro: scheduler did not stop in time")

	// ErrSchedulerRunning is returned by Scheduler.Start when another
	// scheduler already drives the engine.
	ErrSchedulerRunning = errors.New("daro: another scheduler is running")
)

// ErrorCode is the numeric status reported to hosts that cannot inspect
// Go errors.
type ErrorCode int

// Status codes. 0 through 7 match the engine's historical numbering.
const (
	CodeUnknown            ErrorCode = -1
	CodeOK                 ErrorCode = 0
	CodeAlreadyInit        ErrorCode = 1
	CodeCreateDevice       ErrorCode = 2
	CodeCreateRenderTarget ErrorCode = 3
	CodeCreateShaders      ErrorCode = 4
	CodeCreateGeometry     ErrorCode = 5
	CodeCreateStaging      ErrorCode = 6
	CodeCreateFrameBuffer  ErrorCode = 7
	CodeLayerLayout        ErrorCode = 8
	CodeNotInitialized     ErrorCode = 9
	CodeInvalidArgument    ErrorCode = 10
	CodeDeviceLost         ErrorCode = 11
	CodeSchedulerTimeout   ErrorCode = 12
	CodeSchedulerRunning   ErrorCode = 13
)

var codes = []struct {
	err  error
	code ErrorCode
}{
	{ErrAlreadyInitialized, CodeAlreadyInit},
	{ErrCreateDevice, CodeCreateDevice},
	{ErrCreateRenderTarget, CodeCreateRenderTarget},
	{ErrCreateShaders, CodeCreateShaders},
	{ErrCreateGeometry, CodeCreateGeometry},
	{ErrCreateStaging, CodeCreateStaging},
	{ErrCreateFrameBuffer, CodeCreateFrameBuffer},
	{ErrLayerLayout, CodeLayerLayout},
	{ErrNotInitialized, CodeNotInitialized},
	{ErrInvalidArgument, CodeInvalidArgument},
	{ErrDeviceLost, CodeDeviceLost},
	{ErrSchedulerTimeout, CodeSchedulerTimeout},
	{ErrSchedulerRunning, CodeSchedulerRunning},
}

// Code maps err to its status code.
func Code(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeUnknown
}
