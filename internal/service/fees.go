package service

import (
	"fmt"
	"time"

	apperrors "parkir/internal/errors"
)

// ComputeFee calculates the parking fee for a stay. Billed hours are the
// elapsed duration rounded up to whole hours, with a minimum of one billed
// hour: any parking incurs at least one hour's charge, including an exit in
// the same instant as the entry. The rate and the returned amount are in
// minor currency units; the math is pure integer arithmetic.
func ComputeFee(entryTime, exitTime time.Time, hourlyRate int64) (time.Duration, int64, error) {
	if exitTime.Before(entryTime) {
		return 0, 0, fmt.Errorf("exit %s before entry %s: %w",
			exitTime.Format(time.RFC3339), entryTime.Format(time.RFC3339), apperrors.ErrInvalidInterval)
	}

	duration := exitTime.Sub(entryTime)

	billedHours := int64((duration + time.Hour - 1) / time.Hour)
	if billedHours < 1 {
		billedHours = 1
	}

	return duration, billedHours * hourlyRate, nil
}
