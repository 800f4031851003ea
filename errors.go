package tieredcache

import "fmt"

// SerializationError reports a value that could not be encoded on the
// compute-and-store path. It is the only error class the cache itself
// raises; every other store failure is absorbed.
type SerializationError struct {
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("cache value for %q not serializable: %v", e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }
