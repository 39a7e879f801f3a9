package ports

import "gozunis/domain/run"

// ProgressPublisher receives run progress events. Publish must not block.
type ProgressPublisher interface {
	Publish(event run.ProgressEvent)
}
