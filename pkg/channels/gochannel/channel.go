// Package gochannel provides the in-process watermill pub/sub used when no broker is configured.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// DefaultBufferSize is the per-subscriber output buffer.
const DefaultBufferSize = 1000

// Config tunes the in-memory pub/sub. BlockUntilAck makes Publish wait for subscribers,
// which keeps tests deterministic.
type Config struct {
	BufferSize    int
	BlockUntilAck bool
}

// New returns a GoChannel acting as both publisher and subscriber.
func New(logger watermill.LoggerAdapter, config Config) (*gochannel.GoChannel, *gochannel.GoChannel) {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBufferSize
	}

	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            int64(config.BufferSize),
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: config.BlockUntilAck,
		},
		logger,
	)

	return pubSub, pubSub
}
