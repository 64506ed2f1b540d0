package topic

import (
	"strings"
)

// Wildcard is the single-level MQTT wildcard.
const Wildcard = "+"

const (
	// SuffixAvailability groups the service availability announcements.
	// Structure: {root}/availability/{kind}
	SuffixAvailability = "availability"

	KindLiveness  = "liveness"
	KindReadiness = "readiness"
)

// TopicBuilder constructs MQTT topic strings under a root namespace.
type TopicBuilder struct {
	// root is the base namespace for all topics (e.g., "vehicle-api/v1").
	root string
}

// NewTopicBuilder creates a new instance of TopicBuilder with the specified root namespace.
// Leading and trailing slashes of root are dropped.
func NewTopicBuilder(root string) *TopicBuilder {
	return &TopicBuilder{root: strings.Trim(root, "/")}
}

// Availability returns the topic on which changes of the given availability kind are announced.
func (b *TopicBuilder) Availability(kind string) string {
	return b.build(SuffixAvailability, kind)
}

// AvailabilityWildcard matches the announcements of every kind: {root}/availability/+
func (b *TopicBuilder) AvailabilityWildcard() string {
	return b.build(SuffixAvailability, Wildcard)
}

// KindOf returns the last segment of an availability topic.
func KindOf(topic string) string {
	if i := strings.LastIndex(topic, "/"); i >= 0 {
		return topic[i+1:]
	}
	return topic
}

func (b *TopicBuilder) build(suffix, id string) string {
	if b.root == "" {
		return suffix + "/" + id
	}
	return b.root + "/" + suffix + "/" + id
}
