package adapters

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"network-assistant/application"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
)

const (
	MQTTDefaultConnectTimeout    = 30 * time.Second
	MQTTDefaultPublishTimeout    = 5 * time.Second
	MQTTDefaultDisconnectQuiesce = 250 // milliseconds

	willMessageFormat = "client %s disconnected unexpectedly"
)

var (
	ErrMQTTConnectTimeout = fmt.Errorf("connect timeout")
	ErrMQTTPublishTimeout = fmt.Errorf("publish timeout")
	ErrTransmitterStopped = fmt.Errorf("transmitter stopped")
	ErrWillAlreadySet     = fmt.Errorf("will message must be set once, before connecting")
	ErrAlreadyConfigured  = fmt.Errorf("connection options cannot change after connecting")
)

type MQTTTransmitterParams struct {
	Connection application.ConnectionConfig
	Topics     application.TopicConfig

	Queue application.MessageQueue

	ConnectTimeout time.Duration
	PublishTimeout time.Duration

	NewClientID   func() string
	NewClientFunc func(options *mqtt.ClientOptions) mqtt.Client

	Log zerolog.Logger
}

func (m *MQTTTransmitterParams) EnsureDefaults() {
	if m.ConnectTimeout == 0 {
		m.ConnectTimeout = MQTTDefaultConnectTimeout
	}

	if m.PublishTimeout == 0 {
		m.PublishTimeout = MQTTDefaultPublishTimeout
	}

	if m.NewClientID == nil {
		m.NewClientID = RandomClientID
	}

	if m.NewClientFunc == nil {
		m.NewClientFunc = mqtt.NewClient
	}

	if m.Topics.Topic == "" {
		m.Topics.Topic = application.DefaultTopic
	}

	if m.Topics.TopicWill == "" {
		m.Topics.TopicWill = application.DefaultTopicWill
	}
}

// MQTTTransmitter owns a single broker connection. Connection state changes
// only through ConnectionState.Next, under mu.
type MQTTTransmitter struct {
	params   MQTTTransmitterParams
	clientID string

	options *mqtt.ClientOptions
	client  mqtt.Client

	mu         sync.Mutex
	state      application.ConnectionState
	handshaken bool
	willSet    bool
	stalled    bool
	listening  bool

	msgCount           uint64
	msgCountUpdateTime atomic.Pointer[time.Time]
	reconnectAttempts  uint64

	log zerolog.Logger
}

// NewMQTTTransmitter configures the client and performs the initial
// handshake. Only configuration errors are returned; a failed handshake is
// logged and leaves the transmitter stopped.
func NewMQTTTransmitter(params MQTTTransmitterParams) (*MQTTTransmitter, error) {
	params.EnsureDefaults()

	if params.Queue == nil {
		return nil, fmt.Errorf("queue is required")
	}

	clientID := params.Connection.ClientID
	if clientID == "" {
		clientID = params.NewClientID()
	}
	params.Connection.ClientID = clientID

	if err := params.Connection.Validate(); err != nil {
		return nil, err
	}

	t := &MQTTTransmitter{
		params:   params,
		clientID: clientID,
		log:      params.Log.With().Str("client_id", clientID).Logger(),
	}
	t.options = t.newClientOptions()

	epoch := time.Unix(0, 0)
	t.msgCountUpdateTime.Store(&epoch)

	conn := params.Connection
	if conn.Username != "" && conn.Password != "" {
		if err := t.SetCredentials(conn.Username, conn.Password); err != nil {
			return nil, err
		}
	}
	if conn.TLSCACerts != "" {
		if err := t.SetTLS(conn.TLSCACerts); err != nil {
			return nil, err
		}
	}
	if err := t.SetWill(fmt.Sprintf(willMessageFormat, clientID)); err != nil {
		return nil, err
	}

	t.client = params.NewClientFunc(t.options)
	t.connect()

	return t, nil
}

func (t *MQTTTransmitter) newClientOptions() *mqtt.ClientOptions {
	conn := t.params.Connection
	opts := mqtt.NewClientOptions()

	opts.AddBroker(conn.BrokerURL())
	opts.SetClientID(t.clientID)
	opts.SetKeepAlive(conn.KeepAlive)
	opts.SetCleanSession(conn.CleanSession)
	opts.SetConnectTimeout(t.params.ConnectTimeout)

	// reconnects are driven by OnConnectionLost
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetOrderMatters(true)

	opts.SetDefaultPublishHandler(t.OnMessage)
	opts.SetConnectionLostHandler(t.OnConnectionLost)

	return opts
}

// SetWill registers the last-will message. It succeeds once, before the
// handshake; every later call returns ErrWillAlreadySet.
func (t *MQTTTransmitter) SetWill(payload string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.willSet || t.handshaken {
		t.log.Error().Msg(ErrWillAlreadySet.Error())
		return ErrWillAlreadySet
	}

	t.options.SetWill(t.params.Topics.TopicWill, payload, t.params.Connection.QoS, true)
	t.willSet = true
	return nil
}

func (t *MQTTTransmitter) SetCredentials(username, password string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handshaken {
		return ErrAlreadyConfigured
	}

	t.options.SetUsername(username)
	t.options.SetPassword(password)
	return nil
}

func (t *MQTTTransmitter) SetTLS(caFile string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handshaken {
		return ErrAlreadyConfigured
	}

	pem, err := os.ReadFile(caFile)
	if err != nil {
		return fmt.Errorf("read ca certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return fmt.Errorf("no certificates found in %s", caFile)
	}

	t.options.SetTLSConfig(&tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	})
	return nil
}

func (t *MQTTTransmitter) connect() {
	t.mu.Lock()
	if !t.fireLocked(application.EventConnect) {
		t.mu.Unlock()
		return
	}
	t.handshaken = true
	t.mu.Unlock()

	if err := t.waitConnect(); err != nil {
		t.log.Error().Err(err).Str("broker", t.params.Connection.BrokerURL()).Msg("failed to connect")
		t.Stop()
		return
	}

	if t.fire(application.EventConnectAck) {
		t.log.Info().Msg("connected")
	}
}

func (t *MQTTTransmitter) waitConnect() error {
	token := t.client.Connect()
	if !token.WaitTimeout(t.params.ConnectTimeout) {
		return ErrMQTTConnectTimeout
	}
	return token.Error()
}

// fire applies ev to the current state. It reports false, leaving the state
// untouched, when ev is not accepted.
func (t *MQTTTransmitter) fire(ev application.ConnectionEvent) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fireLocked(ev)
}

func (t *MQTTTransmitter) fireLocked(ev application.ConnectionEvent) bool {
	next, ok := t.state.Next(ev)
	if !ok {
		t.log.Debug().Str("state", t.state.String()).Str("event", ev.String()).Msg("event ignored")
		return false
	}
	t.state = next
	return true
}

// Stop closes the connection. Calls after the first, or on a transmitter
// that never connected, do nothing.
func (t *MQTTTransmitter) Stop() {
	if !t.fire(application.EventStop) {
		return
	}

	t.client.Disconnect(MQTTDefaultDisconnectQuiesce)
	t.log.Info().Msg("connection closed")
}

func (t *MQTTTransmitter) State() application.ConnectionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *MQTTTransmitter) IsConnected() bool {
	return t.State() == application.StateConnected
}

func (t *MQTTTransmitter) Status() application.TransmitterStatus {
	t.mu.Lock()
	state, stalled := t.state, t.stalled
	t.mu.Unlock()

	return application.TransmitterStatus{
		State:             state,
		ClientID:          t.clientID,
		MessageCount:      atomic.LoadUint64(&t.msgCount),
		LastTimePublished: *t.msgCountUpdateTime.Load(),
		ReconnectAttempts: atomic.LoadUint64(&t.reconnectAttempts),
		Stalled:           stalled,
	}
}

func (t *MQTTTransmitter) stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handshaken && !t.state.Active()
}

func (t *MQTTTransmitter) Send(payload application.Payload) error {
	if t.stopped() {
		return ErrTransmitterStopped
	}

	data, err := payload.Encode()
	if err != nil {
		return err
	}

	conn := t.params.Connection
	token := t.client.Publish(t.params.Topics.Topic, conn.QoS, conn.Retain, data)
	go t.awaitPublish(token)

	return nil
}

func (t *MQTTTransmitter) awaitPublish(token mqtt.Token) {
	if !token.WaitTimeout(t.params.PublishTimeout) {
		if !t.stopped() {
			t.log.Warn().Err(ErrMQTTPublishTimeout).Str("topic", t.params.Topics.Topic).Msg("publish not acknowledged")
		}
		return
	}
	if t.stopped() {
		return
	}
	if err := token.Error(); err != nil {
		t.log.Error().Err(err).Str("topic", t.params.Topics.Topic).Msg("publish failed")
		return
	}

	now := time.Now()
	t.msgCountUpdateTime.Store(&now)
	atomic.AddUint64(&t.msgCount, 1)

	var mid uint16
	if pt, ok := token.(*mqtt.PublishToken); ok {
		mid = pt.MessageID()
	}
	t.log.Info().Str("topic", t.params.Topics.Topic).Uint16("mid", mid).Msg("payload published")
}

func (t *MQTTTransmitter) Listen() error {
	if t.stopped() {
		return ErrTransmitterStopped
	}

	t.mu.Lock()
	t.listening = true
	t.mu.Unlock()

	t.subscribe()
	return nil
}

func (t *MQTTTransmitter) subscribe() {
	token := t.client.Subscribe(t.params.Topics.Topic, t.params.Connection.QoS, t.OnMessage)
	go t.awaitSubscribe(token)
}

func (t *MQTTTransmitter) awaitSubscribe(token mqtt.Token) {
	if !token.WaitTimeout(t.params.PublishTimeout) || t.stopped() {
		return
	}
	if err := token.Error(); err != nil {
		t.log.Error().Err(err).Str("topic", t.params.Topics.Topic).Msg("subscribe failed")
		return
	}
	t.log.Info().Str("topic", t.params.Topics.Topic).Msg("subscribed")
}

// OnMessage decodes an inbound payload and queues it. Malformed payloads
// are logged and dropped; a panic is recovered so the paho router keeps
// running.
func (t *MQTTTransmitter) OnMessage(client mqtt.Client, msg mqtt.Message) {
	var pc panics.Catcher
	pc.Try(func() {
		payload, err := application.DecodePayload(msg.Payload())
		if err != nil {
			t.log.Error().Err(err).Str("topic", msg.Topic()).Msg("dropping inbound message")
			return
		}
		t.params.Queue.Push(payload)
	})

	if r := pc.Recovered(); r != nil {
		t.log.Error().Str("topic", msg.Topic()).Interface("panic", r.Value).Msg("inbound message handler panicked")
	}
}

// OnConnectionLost runs on a paho goroutine after a disconnect that was not
// requested through Stop. It makes exactly one synchronous reconnect attempt.
func (t *MQTTTransmitter) OnConnectionLost(client mqtt.Client, err error) {
	if err == nil {
		return
	}
	if !t.fire(application.EventConnectionLost) {
		return
	}

	t.log.Warn().Err(err).Msg("connection lost, reconnecting")
	t.reconnect()
}

func (t *MQTTTransmitter) reconnect() {
	atomic.AddUint64(&t.reconnectAttempts, 1)

	if err := t.waitConnect(); err != nil {
		t.mu.Lock()
		failed := t.fireLocked(application.EventReconnectFail)
		if failed {
			t.stalled = true
		}
		t.mu.Unlock()

		if failed {
			t.log.Error().Err(err).Msg("reconnect failed, no further attempts")
		}
		return
	}

	if !t.fire(application.EventReconnectAck) {
		// stopped while the attempt was in flight
		t.client.Disconnect(0)
		return
	}
	t.log.Info().Msg("reconnected")

	t.mu.Lock()
	listening := t.listening
	t.mu.Unlock()
	if listening {
		t.subscribe()
	}
}

var _ application.Transmitter = &MQTTTransmitter{}
