package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/TheusHen/qrng/qrng/bits"
)

var (
	ErrTrialSource         = errors.New("source: trial source failure")
	ErrInvalidChannelCount = errors.New("source: channel count must be positive")
)

// Batch is the ordered outcome of one trial-source call.
// Its length is a multiple of the channel count. Consumers must not modify it.
type Batch []bits.Bit

//go:generate mockgen -source=source.go -destination=mocks/source_mock.go -package=mocks TrialSource

// TrialSource produces raw measurement outcomes.
//
// Any backend (simulator, hardware bridge, remote service or a pseudo-random
// substitute) only needs DrawBatch. Returned outcomes are assumed to be
// independent and identically prepared. Backend failures must be returned as
// *TrialSourceError; they are fatal for the caller and never retried.
type TrialSource interface {
	DrawBatch(ctx context.Context, channelCount int) (Batch, error)
}

// TrialSourceError marks a failure of the external trial source.
type TrialSourceError struct {
	Source string
	Err    error
}

func (e *TrialSourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("source: %s: trial source failure", e.Source)
	}
	return fmt.Sprintf("source: %s: %v", e.Source, e.Err)
}

func (e *TrialSourceError) Unwrap() []error { return []error{ErrTrialSource, e.Err} }

// Fail wraps err as a TrialSourceError for the named source.
// A nil err stays nil; an existing TrialSourceError is returned unchanged.
func Fail(name string, err error) error {
	if err == nil {
		return nil
	}
	var tse *TrialSourceError
	if errors.As(err, &tse) {
		return err
	}
	return &TrialSourceError{Source: name, Err: err}
}

// Func adapts a function to the TrialSource interface.
type Func func(ctx context.Context, channelCount int) (Batch, error)

func (f Func) DrawBatch(ctx context.Context, channelCount int) (Batch, error) {
	return f(ctx, channelCount)
}

func checkChannels(name string, channelCount int) error {
	if channelCount <= 0 {
		return &TrialSourceError{Source: name, Err: fmt.Errorf("%w: %d", ErrInvalidChannelCount, channelCount)}
	}
	return nil
}
