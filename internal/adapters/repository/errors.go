package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrStoreClosed = errors.New("store closed")
	ErrOpenStore   = errors.New("open store")
	ErrWriteRecord = errors.New("write record")
	ErrReadRecords = errors.New("read records")
)
