package storage

import "swapwatch/internal/model"

// Storage defines a sink for swap records.
type Storage interface {
	Append(record model.SwapRecord) error
}
