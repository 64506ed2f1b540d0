package health

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/model"
	"github.com/autopeer-io/vehicle-api/pkg/mqtt"
	"github.com/autopeer-io/vehicle-api/pkg/mqtt/topic"
)

const publishTimeout = 5 * time.Second

var _ core.AvailabilityNotifier = (*MQTTNotifier)(nil)

// MQTTNotifier publishes each transition as a retained JSON message on
// {root}/availability/{liveness|readiness}, so late subscribers see the current state.
type MQTTNotifier struct {
	pub    mqtt.Publisher
	topics *topic.TopicBuilder
	qos    int
}

func NewMQTTNotifier(pub mqtt.Publisher, topics *topic.TopicBuilder, qos int) *MQTTNotifier {
	return &MQTTNotifier{pub: pub, topics: topics, qos: qos}
}

func (n *MQTTNotifier) Notify(ctx context.Context, t model.Transition) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode transition: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := n.pub.Publish(ctx, n.topics.Availability(string(t.Kind)), n.qos, true, payload); err != nil {
		return fmt.Errorf("failed to publish %s transition: %w", t.Kind, err)
	}
	return nil
}
