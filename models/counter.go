package models

import "fmt"

// Counter is a monotonically increasing sequence document. One counter exists
// per complaint year; it only ever moves forward, so display IDs are never
// reused after a complaint is deleted.
type Counter struct {
	ID  string `bson:"_id" json:"id"`
	Seq int64  `bson:"seq" json:"seq"`
}

// ComplaintCounterName returns the counter document ID for a given year.
func ComplaintCounterName(year int) string {
	return fmt.Sprintf("complaints-%d", year)
}
