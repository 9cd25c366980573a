// Package push provides the subscription-based notification channel the
// conversion service uses to stream job progress. Consumers depend on the
// Subscriber interface; the websocket implementation in this package is the
// one shipped with the CLI, tests inject fakes.
package push

// Handler receives the raw payload of one message published on a topic.
type Handler func(payload []byte)

// Subscription is a cancellable handle to one topic subscription.
// Unsubscribe must be safe to call more than once.
type Subscription interface {
	Unsubscribe()
}

// Subscriber establishes topic subscriptions on the push channel.
type Subscriber interface {
	Subscribe(topic string, h Handler) (Subscription, error)
	Close() error
}
