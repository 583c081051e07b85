// Package checklist models one inspection task and the status transitions
// it goes through from photo capture to confirmation.
package checklist

import "github.com/dofliu/InduSpect/pkg/models"

// Status is the wire name of an item's state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCapturing Status = "capturing"
	StatusCaptured  Status = "captured"
	StatusLoading   Status = "loading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusConfirmed Status = "confirmed"
)

// State is the closed set of item states. Only the states that own a
// payload carry one: a result exists only on Succeeded and Confirmed, a
// failure reason only on Failed.
type State interface {
	Status() Status
	state()
}

// Pending is waiting for a photo.
type Pending struct{}

// Capturing is decoding a newly taken photo. Prev is restored if the decode
// fails.
type Capturing struct {
	Prev State
}

// Captured holds a photo and waits for dispatch.
type Captured struct{}

// Loading has one analysis call outstanding. Prev is restored if the
// dispatch is deferred.
type Loading struct {
	Prev State
}

// Succeeded holds an editable analysis result.
type Succeeded struct {
	Result models.AnalysisResult
}

// Failed holds the analysis failure reason verbatim.
type Failed struct {
	Reason string
}

// Confirmed is final and immutable.
type Confirmed struct {
	Result models.AnalysisResult
}

func (Pending) Status() Status   { return StatusPending }
func (Capturing) Status() Status { return StatusCapturing }
func (Captured) Status() Status  { return StatusCaptured }
func (Loading) Status() Status   { return StatusLoading }
func (Succeeded) Status() Status { return StatusSuccess }
func (Failed) Status() Status    { return StatusError }
func (Confirmed) Status() Status { return StatusConfirmed }

func (Pending) state()   {}
func (Capturing) state() {}
func (Captured) state()  {}
func (Loading) state()   {}
func (Succeeded) state() {}
func (Failed) state()    {}
func (Confirmed) state() {}
