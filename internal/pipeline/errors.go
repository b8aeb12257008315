package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"

	"thirdcoast.systems/reelrecipes/internal/completion"
	"thirdcoast.systems/reelrecipes/internal/whisper"
	"thirdcoast.systems/reelrecipes/pkg/ffmpeg"
	"thirdcoast.systems/reelrecipes/pkg/ytdlp"
)

// Failure kinds. A StageError carries exactly one of these.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrRecordNotFound  = errors.New("record not found")
	ErrResponseShape   = errors.New("response shape error")
	ErrExternalTool    = errors.New("external tool failure")
	ErrUpstreamService = errors.New("upstream service failure")
	ErrStore           = errors.New("store failure")
)

// ErrVideoNotFound is returned by VideoStore lookups that match nothing.
var ErrVideoNotFound = errors.New("video not found")

// StageError is a classified failure from one stage run.
type StageError struct {
	Kind  error
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error { return []error{e.Kind, e.Err} }

// Retryable is consulted by the queue. Invalid input, missing records and
// unreadable model output are final.
func (e *StageError) Retryable() bool {
	switch e.Kind {
	case ErrInvalidInput, ErrRecordNotFound, ErrResponseShape:
		return false
	}
	return true
}

func stageErr(kind error, stage string, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

// classify maps an error from a collaborator onto a failure kind.
func classify(stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}

	var (
		ytErr   *ytdlp.ExecError
		ffErr   *ffmpeg.Error
		wStatus *whisper.StatusError
		wShape  *whisper.ShapeError
		cStatus *completion.StatusError
		cShape  *completion.ShapeError
		netErr  net.Error
	)
	switch {
	case errors.As(err, &ytErr), errors.As(err, &ffErr):
		return stageErr(ErrExternalTool, stage, err)
	case errors.Is(err, whisper.ErrTooLarge), errors.Is(err, completion.ErrUnsupportedProtocol):
		return stageErr(ErrInvalidInput, stage, err)
	case errors.As(err, &wShape):
		// A transcription service answering garbage is treated as an outage.
		return stageErr(ErrUpstreamService, stage, err)
	case errors.As(err, &cShape):
		return stageErr(ErrResponseShape, stage, err)
	case errors.As(err, &wStatus), errors.As(err, &cStatus), errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded):
		return stageErr(ErrUpstreamService, stage, err)
	case errors.Is(err, ErrVideoNotFound):
		return stageErr(ErrRecordNotFound, stage, err)
	}
	return fmt.Errorf("%s: %w", stage, err)
}
