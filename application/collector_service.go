package application

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPollInterval   = 1 * time.Second
	DefaultReportInterval = 30 * time.Second
)

type CollectorService interface {
	Run(ctx context.Context) error
}

type CollectorServiceParams struct {
	Transmitter Transmitter
	Queue       MessageQueue

	PollInterval   time.Duration
	ReportInterval time.Duration

	Log zerolog.Logger
}

type collectorService struct {
	params CollectorServiceParams

	log zerolog.Logger
}

func NewCollectorService(params CollectorServiceParams) (CollectorService, error) {
	if params.Transmitter == nil {
		return nil, fmt.Errorf("Transmitter is nil")
	}
	if params.Queue == nil {
		return nil, fmt.Errorf("Queue is nil")
	}
	if params.PollInterval == 0 {
		params.PollInterval = DefaultPollInterval
	}
	if params.ReportInterval == 0 {
		params.ReportInterval = DefaultReportInterval
	}
	return &collectorService{params: params, log: params.Log}, nil
}

func (c collectorService) Run(ctx context.Context) error {
	defer func() {
		c.params.Transmitter.Stop()
		c.log.Info().Msg("exited")
	}()

	if err := c.params.Transmitter.Listen(); err != nil {
		return err
	}

	g := errgroup.Group{}

	// queue consumer
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				c.log.Info().Msg("shutdown requested, leaving receive loop")
				return nil
			default:
			}

			payload, ok := c.params.Queue.Pop(c.params.PollInterval)
			if !ok {
				continue
			}

			c.log.Info().Fields(map[string]any(payload)).Msg("report received")
		}
	})

	// transmitter status reporter
	g.Go(func() error {
		ticker := time.NewTicker(c.params.ReportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				status := c.params.Transmitter.Status()
				ev := c.log.Info()
				if status.Stalled {
					ev = c.log.Error()
				}
				ev.Str("state", status.State.String()).
					Uint64("reconnect_attempts", status.ReconnectAttempts).
					Bool("stalled", status.Stalled).
					Int("queued", c.params.Queue.Len()).
					Msg("transmitter report")
			}
		}
	})

	return g.Wait()
}
