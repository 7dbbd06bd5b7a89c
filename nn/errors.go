package nn

import (
	"github.com/pkg/errors"
)

// Error taxonomy for the forward engine. Every failure returned by this
// package wraps exactly one of these; classify with errors.Is.
var (
	// ErrInvalidArgument reports a non-positive size or input count, an input
	// length mismatch or a malformed sample matrix.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrLogic reports a call that is valid in isolation but wrong for the
	// receiver: a missing predecessor, a gate call on a feed-forward neuron,
	// sample loading on a feed-forward layer.
	ErrLogic = errors.New("logic error")
)

func invalidArgf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

func logicErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrLogic, format, args...)
}
