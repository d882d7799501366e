package application

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultAckWait = 100 * time.Millisecond

	TimestampLayout = "2006-01-02 15:04:05"
)

type ReporterService interface {
	Run(ctx context.Context) error
}

type ReporterServiceParams struct {
	Transmitter Transmitter
	Resolver    AddressResolver

	Name      string
	Interface string

	// AckWait is how long to keep the connection open after Send so the
	// publish acknowledgment can arrive.
	AckWait time.Duration
	Now     func() time.Time

	Log zerolog.Logger
}

type reporterService struct {
	params ReporterServiceParams

	log zerolog.Logger
}

func NewReporterService(params ReporterServiceParams) (ReporterService, error) {
	if params.Transmitter == nil {
		return nil, fmt.Errorf("Transmitter is nil")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("Resolver is nil")
	}
	if params.Interface == "" {
		params.Interface = DefaultInterface
	}
	if params.Name == "" {
		params.Name = DefaultClientName
	}
	if params.AckWait == 0 {
		params.AckWait = DefaultAckWait
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &reporterService{params: params, log: params.Log}, nil
}

func (r reporterService) Run(ctx context.Context) error {
	defer r.params.Transmitter.Stop()

	ip, err := r.params.Resolver.IPv4(r.params.Interface)
	if err != nil {
		r.log.Error().Err(err).Str("interface", r.params.Interface).Msg("failed to read interface address")
		return err
	}

	payload := Payload{
		"Timestamp": r.params.Now().Format(TimestampLayout),
		"Name":      r.params.Name,
		"IP":        ip,
	}
	if err := r.params.Transmitter.Send(payload); err != nil {
		return err
	}

	t := time.NewTimer(r.params.AckWait)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
	return nil
}
