package ports

import (
	"cutvalid/domain/record"
)

// RecordReader loads one validation file
type RecordReader interface {
	ReadRecord(path string) (*record.ValidationRecord, error)
}
