package application

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReporterService(t *testing.T) {
	_, err := NewReporterService(ReporterServiceParams{Resolver: &MockAddressResolver{}})
	require.Error(t, err)

	_, err = NewReporterService(ReporterServiceParams{Transmitter: &MockTransmitter{}})
	require.Error(t, err)
}

func TestReporterService_Run(t *testing.T) {
	mTransmitter := &MockTransmitter{}
	mResolver := &MockAddressResolver{}
	now := time.Date(2025, 10, 15, 13, 39, 32, 0, time.UTC)

	reporter, err := NewReporterService(ReporterServiceParams{
		Transmitter: mTransmitter,
		Resolver:    mResolver,
		Name:        "gateway-7",
		Interface:   "eth0",
		AckWait:     time.Millisecond,
		Now:         func() time.Time { return now },
	})
	require.NoError(t, err)

	mResolver.On("IPv4", "eth0").Return("10.0.0.5", nil).Once()
	mTransmitter.On("Send", Payload{
		"Timestamp": "2025-10-15 13:39:32",
		"Name":      "gateway-7",
		"IP":        "10.0.0.5",
	}).Return(nil).Once()
	mTransmitter.On("Stop").Return().Once()

	require.NoError(t, reporter.Run(context.Background()))

	mTransmitter.AssertExpectations(t)
	mResolver.AssertExpectations(t)
}

func TestReporterService_Run_NoAddress(t *testing.T) {
	mTransmitter := &MockTransmitter{}
	mResolver := &MockAddressResolver{}
	var logs bytes.Buffer

	reporter, err := NewReporterService(ReporterServiceParams{
		Transmitter: mTransmitter,
		Resolver:    mResolver,
		Log:         zerolog.New(&logs),
	})
	require.NoError(t, err)

	mResolver.On("IPv4", DefaultInterface).Return("", fmt.Errorf("no such network interface")).Once()
	mTransmitter.On("Stop").Return().Once()

	require.Error(t, reporter.Run(context.Background()))
	assert.Contains(t, logs.String(), "failed to read interface address")

	mTransmitter.AssertNotCalled(t, "Send")
	mTransmitter.AssertExpectations(t)
}

func TestReporterService_Run_Cancelled(t *testing.T) {
	mTransmitter := &MockTransmitter{}
	mResolver := &MockAddressResolver{}
	now := time.Date(2025, 10, 15, 13, 39, 32, 0, time.UTC)

	reporter, err := NewReporterService(ReporterServiceParams{
		Transmitter: mTransmitter,
		Resolver:    mResolver,
		AckWait:     time.Hour,
		Now:         func() time.Time { return now },
	})
	require.NoError(t, err)

	mResolver.On("IPv4", DefaultInterface).Return("10.0.0.5", nil).Once()
	mTransmitter.On("Send", Payload{
		"Timestamp": "2025-10-15 13:39:32",
		"Name":      DefaultClientName,
		"IP":        "10.0.0.5",
	}).Return(nil).Once()
	mTransmitter.On("Stop").Return().Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error)
	go func() { done <- reporter.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	mTransmitter.AssertExpectations(t)
	mResolver.AssertExpectations(t)
}
