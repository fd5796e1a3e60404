package events

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
)

// PublisherManager distributes session events to a set of watermill
// publishers. Publishers are registered per topic; every published event is
// serialized to JSON once and delivered to all publishers registered for
// their topic, tagged with a monotonically increasing sequence number in the
// order Publish was called.
type PublisherManager struct {
	publishers     map[string][]message.Publisher
	sequenceNumber uint64
	mutex          sync.Mutex
}

func NewPublisherManager() *PublisherManager {
	return &PublisherManager{
		publishers: make(map[string][]message.Publisher),
	}
}

func (p *PublisherManager) RegisterPublisher(topic string, pub message.Publisher) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.publishers[topic] = append(p.publishers[topic], pub)
}

// Publish serializes the event and distributes it across all topics.
func (p *PublisherManager) Publish(e Event) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), b)
	msg.Metadata.Set("sequence_number", fmt.Sprintf("%d", p.sequenceNumber))
	msg.Metadata.Set("event_type", string(e.Type()))
	p.sequenceNumber++

	for topic, pubs := range p.publishers {
		for _, pub := range pubs {
			if err := pub.Publish(topic, msg); err != nil {
				log.Warn().Err(err).Str("topic", topic).Msg("failed to publish event")
			}
		}
	}

	return nil
}

// PublishBlind publishes and only logs failures. Used on the hot streaming
// path where a broken observer must not abort the session.
func (p *PublisherManager) PublishBlind(e Event) {
	if err := p.Publish(e); err != nil {
		log.Warn().Err(err).Msg("failed to publish event")
	}
}
