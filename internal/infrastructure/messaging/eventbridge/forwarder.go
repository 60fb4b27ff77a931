// Package eventbridge forwards graph events to an AWS EventBridge bus.
//
// The graph delivers events synchronously, so the Forwarder only encodes
// and enqueues inside Handle; a background loop batches entries into
// PutEvents calls.
package eventbridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"activegraph/internal/config"
	"activegraph/internal/domain/events"
	"activegraph/internal/domain/shared"
	"activegraph/internal/errors"
)

const (
	// maxBatchSize is the PutEvents entry limit.
	maxBatchSize = 10

	defaultQueueSize     = 1024
	defaultFlushInterval = 100 * time.Millisecond
)

// PutEventsAPI is the subset of the EventBridge client the forwarder uses.
type PutEventsAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// NewClient builds an EventBridge client from the default AWS credential
// chain.
func NewClient(ctx context.Context, cfg config.EventBridge) (*eventbridge.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Unavailable(errors.CodeForwardFailed.String(), "failed to load AWS configuration").
			WithResource("eventbridge").
			WithCause(err).
			Build()
	}
	return eventbridge.NewFromConfig(awsCfg), nil
}

// Forwarder is an events.Subscriber.
type Forwarder struct {
	client        PutEventsAPI
	busName       string
	source        string
	timeout       time.Duration
	flushInterval time.Duration
	logger        *zap.Logger

	mu     sync.Mutex
	closed bool
	queue  chan types.PutEventsRequestEntry
	done   chan struct{}
}

var _ events.Subscriber = (*Forwarder)(nil)

// NewForwarder creates a forwarder and starts its publishing loop.
func NewForwarder(client PutEventsAPI, cfg config.EventBridge, logger *zap.Logger) *Forwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Forwarder{
		client:        client,
		busName:       cfg.BusName,
		source:        cfg.Source,
		timeout:       cfg.Timeout,
		flushInterval: defaultFlushInterval,
		logger:        logger,
		queue:         make(chan types.PutEventsRequestEntry, defaultQueueSize),
		done:          make(chan struct{}),
	}
	if f.timeout <= 0 {
		f.timeout = 5 * time.Second
	}
	go f.loop()
	return f
}

// Handle encodes the event and queues it. A full queue or a closed
// forwarder is reported as an error so the bus counts the failure.
func (f *Forwarder) Handle(event shared.Event) error {
	entry, err := f.entry(event)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.Unavailable(errors.CodeForwardFailed.String(), "forwarder is closed").
			WithResource("eventbridge").
			Build()
	}
	select {
	case f.queue <- entry:
		return nil
	default:
		return errors.Unavailable(errors.CodeForwardFailed.String(), "forward queue is full").
			WithResource("eventbridge").
			WithDetails(event.Type.String()).
			Build()
	}
}

func (f *Forwarder) entry(event shared.Event) (types.PutEventsRequestEntry, error) {
	detail, err := json.Marshal(map[string]any{
		"type":    event.Type.String(),
		"seq":     event.Seq,
		"payload": event.Describe(),
	})
	if err != nil {
		return types.PutEventsRequestEntry{}, errors.Internal(errors.CodeForwardFailed.String(), "failed to encode event").
			WithResource("eventbridge").
			WithDetails(event.Type.String()).
			WithCause(err).
			Build()
	}

	return types.PutEventsRequestEntry{
		EventBusName: aws.String(f.busName),
		Source:       aws.String(f.source),
		DetailType:   aws.String(event.Type.String()),
		Detail:       aws.String(string(detail)),
		Time:         aws.Time(time.Now()),
	}, nil
}

func (f *Forwarder) loop() {
	defer close(f.done)

	ticker := time.NewTicker(f.flushInterval)
	defer ticker.Stop()

	batch := make([]types.PutEventsRequestEntry, 0, maxBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		f.publish(batch)
		batch = make([]types.PutEventsRequestEntry, 0, maxBatchSize)
	}

	for {
		select {
		case entry, ok := <-f.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) == maxBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (f *Forwarder) publish(batch []types.PutEventsRequestEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	output, err := f.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: batch})
	if err != nil {
		f.logger.Error("EventBridge PutEvents failed",
			zap.String("bus", f.busName),
			zap.Int("entries", len(batch)),
			zap.Error(err))
		return
	}

	if output.FailedEntryCount > 0 {
		for i, entry := range output.Entries {
			if entry.ErrorCode != nil {
				f.logger.Error("EventBridge rejected event",
					zap.Int("index", i),
					zap.String("detail_type", aws.ToString(batch[i].DetailType)),
					zap.String("code", aws.ToString(entry.ErrorCode)),
					zap.String("message", aws.ToString(entry.ErrorMessage)))
			}
		}
		return
	}

	f.logger.Debug("Events forwarded", zap.String("bus", f.busName), zap.Int("entries", len(batch)))
}

// Close stops accepting events and waits for queued ones to be sent or for
// ctx to end.
func (f *Forwarder) Close(ctx context.Context) error {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.queue)
	}
	f.mu.Unlock()

	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
