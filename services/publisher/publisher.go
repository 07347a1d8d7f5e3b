package publisher

// Publisher feeds each cycle's channel deals to downstream consumers.
type Publisher interface {
	// Publish appends one batch of deals to a stream
	Publish(message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}
