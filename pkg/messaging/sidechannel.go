package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ParametersChannelID is the well-known id arena configurations are
// delivered to.
const ParametersChannelID = "arenas-parameters"

// TrainerID is the sender id used for deliveries from a training process.
const TrainerID = "trainer"

var (
	ErrNotRegistered = errors.New("side channel is not registered")
	ErrBadPayload    = errors.New("side channel payload is not bytes")
)

// SideChannel receives configuration payloads through a Broker. It owns one
// subscription, opened by Register and closed by Unregister.
type SideChannel struct {
	id         string
	broker     Broker
	inbox      chan Message
	registered bool
	mu         sync.Mutex
	log        zerolog.Logger
}

type SideChannelParams struct {
	ID     string
	Buffer int
	Logger zerolog.Logger
}

type SideChannelOption func(*SideChannelParams)

func WithChannelID(id string) SideChannelOption {
	return func(p *SideChannelParams) {
		p.ID = id
	}
}

// WithBuffer sets how many undelivered payloads are held before Publish
// starts failing.
func WithBuffer(n int) SideChannelOption {
	return func(p *SideChannelParams) {
		if n > 0 {
			p.Buffer = n
		}
	}
}

func WithChannelLogger(l zerolog.Logger) SideChannelOption {
	return func(p *SideChannelParams) {
		p.Logger = l
	}
}

func defaultSideChannelParams() *SideChannelParams {
	return &SideChannelParams{
		ID:     ParametersChannelID,
		Buffer: 16,
		Logger: zerolog.Nop(),
	}
}

func NewSideChannel(broker Broker, opts ...SideChannelOption) *SideChannel {
	params := defaultSideChannelParams()
	for _, opt := range opts {
		opt(params)
	}
	return &SideChannel{
		id:     params.ID,
		broker: broker,
		inbox:  make(chan Message, params.Buffer),
		log:    params.Logger.With().Str("channel", params.ID).Logger(),
	}
}

func (c *SideChannel) ID() string {
	return c.id
}

// Register subscribes the channel to the broker.
func (c *SideChannel) Register() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registered {
		return nil
	}
	if err := c.broker.Subscribe(c.id, c.inbox); err != nil {
		return fmt.Errorf("register side channel: %w", err)
	}
	c.registered = true
	c.log.Debug().Msg("side channel registered")
	return nil
}

// Unregister removes the subscription. Payloads already queued stay
// drainable.
func (c *SideChannel) Unregister() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.registered {
		return nil
	}
	c.registered = false
	if err := c.broker.Unsubscribe(c.id); err != nil {
		return fmt.Errorf("unregister side channel: %w", err)
	}
	c.log.Debug().Msg("side channel unregistered")
	return nil
}

func (c *SideChannel) Registered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registered
}

// Send publishes payload to this channel as the training process would.
func (c *SideChannel) Send(payload []byte) error {
	if !c.Registered() {
		return ErrNotRegistered
	}
	return c.broker.Publish(Message{
		From:      TrainerID,
		To:        []string{c.id},
		Content:   payload,
		Timestamp: time.Now(),
	})
}

// Drain applies every queued payload without blocking and returns how many
// were applied. Handler errors are collected; later payloads still run.
func (c *SideChannel) Drain(handler func([]byte) error) (int, error) {
	applied := 0
	var errs []error
	for {
		select {
		case msg := <-c.inbox:
			if err := c.apply(msg, handler); err != nil {
				errs = append(errs, err)
				continue
			}
			applied++
		default:
			return applied, errors.Join(errs...)
		}
	}
}

// Listen applies payloads as they arrive until ctx ends. Handler errors are
// logged and do not stop the loop.
func (c *SideChannel) Listen(ctx context.Context, handler func([]byte) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-c.inbox:
			if err := c.apply(msg, handler); err != nil {
				c.log.Warn().Err(err).Str("from", msg.From).Msg("rejected delivery")
			}
		}
	}
}

func (c *SideChannel) apply(msg Message, handler func([]byte) error) error {
	payload, ok := msg.Content.([]byte)
	if !ok {
		return fmt.Errorf("%w: %T from %s", ErrBadPayload, msg.Content, msg.From)
	}
	if err := handler(payload); err != nil {
		return err
	}
	c.log.Debug().Str("from", msg.From).Int("bytes", len(payload)).Msg("delivery applied")
	return nil
}
