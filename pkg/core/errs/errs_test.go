package errs

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesKind(t *testing.T) {
	err := ConstraintViolation("GenderQuota", "need %d males, have %d", 2, 1)

	assert.True(t, errors.Is(err, ErrConstraintViolation))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "GenderQuota", err.Fields["constraint"])
}

func TestIs_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("allocate request r1: %w", InsufficientData(9, 10))

	assert.True(t, errors.Is(wrapped, ErrInsufficientData))
	assert.Equal(t, KindInsufficientData, KindOf(wrapped))
}

func TestIs_ThroughJoin(t *testing.T) {
	joined := errors.Join(
		ConstraintViolation("Headcount", "short by 1"),
		Validation("bad input"),
	)

	assert.True(t, errors.Is(joined, ErrConstraintViolation))
	assert.True(t, errors.Is(joined, ErrValidation))
	assert.False(t, errors.Is(joined, ErrPersistence))
}

func TestError_MessageIncludesCause(t *testing.T) {
	err := Persistence("load", errors.New("file not found"))

	assert.Contains(t, err.Error(), "PERSISTENCE")
	assert.Contains(t, err.Error(), "file not found")
	assert.Equal(t, "file not found", errors.Unwrap(err).Error())
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := &os.PathError{Op: "open", Path: "x", Err: errors.New("denied")}
	err := Wrap(KindValidation, cause, "invalid override")

	assert.True(t, errors.Is(err, ErrValidation))
	var pathErr *os.PathError
	assert.True(t, errors.As(err, &pathErr))
	assert.Contains(t, err.Error(), "invalid override")
}

func TestNotFound(t *testing.T) {
	err := NotFound("no requests for %v", []string{"r1"})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
}
