package notifier

import (
	"fmt"
	"net/http"
	"wqd/internal/providers"
	"wqd/internal/structures"
)

// NewNotifierProvider builds the fan-out for the channels listed in notifier.channels.
func NewNotifierProvider(conf *structures.Config, logger providers.Logger, hub *Hub) (*FanOut, error) {
	f := NewFanOut(logger)
	for _, name := range conf.Notifier.Channels {
		switch name {
		case "log":
			f.Add(name, NewLogNotifier(logger))
		case "webhook":
			f.Add(name, NewWebhookNotifier(conf.Notifier.Webhook.URL, &http.Client{Timeout: conf.Notifier.Timeout}))
		case "kafka":
			k, err := NewKafkaNotifier(conf.Notifier.Kafka.Brokers, conf.Notifier.Kafka.Topic)
			if err != nil {
				f.Close()
				return nil, err
			}
			f.Add(name, k)
			f.onClose(k.Close)
		case "hub":
			f.Add(name, hub)
			f.onClose(hub.Close)
		default:
			f.Close()
			return nil, fmt.Errorf("unknown notifier channel %q", name)
		}
	}
	if len(f.channels) == 0 {
		f.Add("log", NewLogNotifier(logger))
	}
	logger.Infof(providers.TypeApp, "Notifier channels: %v", f.Channels())
	return f, nil
}
