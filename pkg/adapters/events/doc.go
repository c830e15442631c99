// Package events provides event bus implementations for task lifecycle events.
//
// Implementations:
//   - redis: Redis Streams with a consumer group, so each event is handled by
//     exactly one subscriber of the group
//   - memory: in-process fan-out, every subscriber sees every event
package events
