package retention

import "time"

// Cutoff computes the boundary instant before which data is eligible
// for deletion: ref minus retentionDays*86400 seconds, exactly. The
// arithmetic is pure instant subtraction; no calendar or timezone
// conversion is involved, so the boundary is identical regardless of
// how ref is displayed.
func Cutoff(ref time.Time, retentionDays float64) time.Time {
	return ref.Add(-time.Duration(retentionDays * 86400 * float64(time.Second)))
}

// CutoffUnix returns the cutoff as epoch seconds, the unit the remote
// store's deletion protocol expects.
func CutoffUnix(ref time.Time, retentionDays float64) int64 {
	return Cutoff(ref, retentionDays).Unix()
}
