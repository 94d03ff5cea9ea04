package services

import "fmt"

// Stage error taxonomy. Every pipeline stage returns either a usable result or
// one of these typed errors, and the orchestrator's single classification
// switch decides skip vs. degrade vs. abort. Nothing above the orchestrator
// boundary ever sees a raw stage error.

// SkippableSourceError means one input unit (a clip, b-roll, or audio source)
// could not be fetched or read. The unit is dropped and the run continues,
// unless dropping it leaves zero usable clips.
type SkippableSourceError struct {
	Ref string
	Err error
}

func (e *SkippableSourceError) Error() string {
	return fmt.Sprintf("source %q unavailable: %v", e.Ref, e.Err)
}

func (e *SkippableSourceError) Unwrap() error { return e.Err }

// StageDegradedError means a stage failed but its input remains usable as its
// output. The orchestrator bypasses the stage and continues with a visibly
// lesser result.
type StageDegradedError struct {
	Stage string
	Err   error
}

func (e *StageDegradedError) Error() string {
	return fmt.Sprintf("stage %s degraded: %v", e.Stage, e.Err)
}

func (e *StageDegradedError) Unwrap() error { return e.Err }

// StageFallbackExhaustedError means a stage failed on its primary path and on
// every alternate algorithm. Fatal to the run.
type StageFallbackExhaustedError struct {
	Stage string
	Err   error
}

func (e *StageFallbackExhaustedError) Error() string {
	return fmt.Sprintf("stage %s failed after exhausting fallbacks: %v", e.Stage, e.Err)
}

func (e *StageFallbackExhaustedError) Unwrap() error { return e.Err }

// FatalConfigError means the pipeline cannot run at all — for example the
// external media tool binary is absent. Never a per-stage fallback.
type FatalConfigError struct {
	Reason string
	Err    error
}

func (e *FatalConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fatal configuration error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("fatal configuration error: %s", e.Reason)
}

func (e *FatalConfigError) Unwrap() error { return e.Err }
