package evaluator

import (
	"fmt"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// VolumeBuckets is the number of hourly buckets in the trailing-day histogram.
const VolumeBuckets = 24

// Bucketize counts timestamps into 24 hourly buckets ending at now. Index 23
// is the current hour and index 0 the oldest. Timestamps in the future or
// older than 24 hours are not counted.
func Bucketize(times []time.Time, now time.Time) [VolumeBuckets]int {
	var buckets [VolumeBuckets]int
	windowStart := now.Add(-VolumeBuckets * time.Hour)
	for _, t := range times {
		if t.Before(windowStart) || t.After(now) {
			continue
		}
		hourDiff := int(now.Sub(t) / time.Hour)
		if hourDiff > VolumeBuckets-1 {
			hourDiff = VolumeBuckets - 1
		}
		if hourDiff < 0 {
			hourDiff = 0
		}
		buckets[VolumeBuckets-1-hourDiff]++
	}
	return buckets
}

// BucketizeTickets buckets tickets by creation time.
func BucketizeTickets(tickets []domain.Ticket, now time.Time) [VolumeBuckets]int {
	times := make([]time.Time, 0, len(tickets))
	for i := range tickets {
		times = append(times, tickets[i].CreatedAt)
	}
	return Bucketize(times, now)
}

// VolumeLabels names the buckets for the trend chart, oldest first.
func VolumeLabels() [VolumeBuckets]string {
	var labels [VolumeBuckets]string
	for i := range labels {
		switch {
		case i == VolumeBuckets-1:
			labels[i] = "Now"
		case i == 0:
			labels[i] = "-24h"
		default:
			labels[i] = fmt.Sprintf("-%dh", VolumeBuckets-1-i)
		}
	}
	return labels
}
