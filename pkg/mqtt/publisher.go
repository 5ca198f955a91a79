package mqtt

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher is the sink the pipeline publishes decision events to.
type IPublisher interface {
	PublishQoS(topic string, qos byte, payload []byte) error
	Close()
}

// Publisher publishes on a shared MQTT client.
type Publisher struct {
	client mqtt.Client
}

func NewPublisher(client mqtt.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishQoS publishes payload to topic and waits for the broker ack.
func (p *Publisher) PublishQoS(topic string, qos byte, payload []byte) error {
	token := p.client.Publish(topic, qos, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish message: %v", token.Error())
	}
	return nil
}

func (p *Publisher) Close() {
	Disconnect(p.client)
}
