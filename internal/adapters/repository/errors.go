package repository

import (
	"errors"
	"fmt"

	"github.com/okian/ghostslot/internal/domain/model"
)

// Sentinel kinds for store errors. Both are reported as storage
// unavailability so callers can treat them as transient.
var (
	ErrClosed        = fmt.Errorf("%w: store closed", model.ErrStorageUnavailable)
	ErrCorruptRecord = errors.New("corrupt reservation record")
)
