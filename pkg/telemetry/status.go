package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"
)

// Topic suffixes under the device ID.
const (
	StatusTopic = "status"
	DebugTopic  = "debug"
)

// DefaultPeriod is the status publishing period.
const DefaultPeriod = time.Second

// Snapshot is the console status.
type Snapshot struct {
	Device     string
	Ticks      uint32
	Interval   uint32
	Level      bool
	Toggles    uint32
	Parity     uint32
	Framing    uint32
	Overrun    uint32
	Overwrites uint32
	RingLen    int
	RingCap    int
}

// String formats the snapshot in one line.
func (s Snapshot) String() string {
	return fmt.Sprintf("ticks=%d interval=%dms level=%v toggles=%d PE=%d FE=%d OE=%d overwrites=%d tx=%d/%d",
		s.Ticks, s.Interval, s.Level, s.Toggles, s.Parity, s.Framing, s.Overrun, s.Overwrites, s.RingLen, s.RingCap)
}

// SnapshotSource provides the current status.
type SnapshotSource interface {
	Snapshot() Snapshot
}

// SnapshotFunc is func form of SnapshotSource.
type SnapshotFunc func() Snapshot

// Snapshot implements SnapshotSource.
func (f SnapshotFunc) Snapshot() Snapshot {
	return f()
}

func numberValue(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

// Encode serializes the snapshot as a protobuf Struct.
func Encode(s Snapshot) ([]byte, error) {
	msg := &structpb.Struct{Fields: map[string]*structpb.Value{
		"device":     {Kind: &structpb.Value_StringValue{StringValue: s.Device}},
		"level":      {Kind: &structpb.Value_BoolValue{BoolValue: s.Level}},
		"ticks":      numberValue(float64(s.Ticks)),
		"interval":   numberValue(float64(s.Interval)),
		"toggles":    numberValue(float64(s.Toggles)),
		"parity":     numberValue(float64(s.Parity)),
		"framing":    numberValue(float64(s.Framing)),
		"overrun":    numberValue(float64(s.Overrun)),
		"overwrites": numberValue(float64(s.Overwrites)),
		"ring_len":   numberValue(float64(s.RingLen)),
		"ring_cap":   numberValue(float64(s.RingCap)),
	}}
	return proto.Marshal(msg)
}

// Decode parses a payload produced by Encode. Missing fields are zero.
func Decode(payload []byte) (s Snapshot, err error) {
	var msg structpb.Struct
	if err = proto.Unmarshal(payload, &msg); err != nil {
		return
	}
	num := func(key string) float64 {
		return msg.Fields[key].GetNumberValue()
	}
	s.Device = msg.Fields["device"].GetStringValue()
	s.Level = msg.Fields["level"].GetBoolValue()
	s.Ticks = uint32(num("ticks"))
	s.Interval = uint32(num("interval"))
	s.Toggles = uint32(num("toggles"))
	s.Parity = uint32(num("parity"))
	s.Framing = uint32(num("framing"))
	s.Overrun = uint32(num("overrun"))
	s.Overwrites = uint32(num("overwrites"))
	s.RingLen = int(num("ring_len"))
	s.RingCap = int(num("ring_cap"))
	return
}

// Broker is the publishing side of Queue.
type Broker interface {
	PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token
}

// Publisher publishes status snapshots periodically and forwards debug
// text. It never waits for delivery.
type Publisher struct {
	Broker Broker
	Device string
	Source SnapshotSource
	Period time.Duration
}

// NewPublisher creates a Publisher.
func NewPublisher(broker Broker, device string, src SnapshotSource) *Publisher {
	return &Publisher{Broker: broker, Device: device, Source: src, Period: DefaultPeriod}
}

// Topic returns the full topic of a suffix.
func (p *Publisher) Topic(suffix string) string {
	return p.Device + "/" + suffix
}

// WriteBestEffort implements debug.Channel.
func (p *Publisher) WriteBestEffort(text string) {
	p.Broker.PubWith(p.Topic(DebugTopic), []byte(strings.TrimRight(text, "\n")), 0, false)
}

// PublishStatus publishes the current snapshot as a retained message.
func (p *Publisher) PublishStatus() error {
	s := p.Source.Snapshot()
	s.Device = p.Device
	payload, err := Encode(s)
	if err != nil {
		return err
	}
	p.Broker.PubWith(p.Topic(StatusTopic), payload, 0, true)
	return nil
}

// Name implements Named.
func (p *Publisher) Name() string {
	return "telemetry"
}

// Run implements Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	period := p.Period
	if period == 0 {
		period = DefaultPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.PublishStatus(); err != nil {
				glog.Errorf("publish status: %v", err)
			}
		}
	}
}
