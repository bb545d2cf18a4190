package providers

import (
	"errors"
	"fmt"
	"wqd/internal/structures"

	"github.com/gookit/validate"
)

var notifierChannels = map[string]bool{"log": true, "webhook": true, "kafka": true, "hub": true}

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return v.Errors
	}

	c := cv.conf
	switch c.Store.Driver {
	case "file":
		if c.Persistence.FilePath == "" {
			return errors.New("persistence.filePath is required for the file store")
		}
	case "mongo":
		if c.Store.Mongo.URI == "" {
			return errors.New("store.mongo.uri is required for the mongo store")
		}
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			return errors.New("store.postgres.dsn is required for the postgres store")
		}
	}

	for _, ch := range c.Notifier.Channels {
		if !notifierChannels[ch] {
			return fmt.Errorf("notifier.channels: unknown channel %q", ch)
		}
	}
	if c.Notifier.HasChannel("webhook") && c.Notifier.Webhook.URL == "" {
		return errors.New("notifier.webhook.url is required for the webhook channel")
	}
	if c.Notifier.HasChannel("kafka") && (c.Notifier.Kafka.Brokers == "" || c.Notifier.Kafka.Topic == "") {
		return errors.New("notifier.kafka.brokers and notifier.kafka.topic are required for the kafka channel")
	}
	return nil
}
