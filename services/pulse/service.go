// services/pulse/service.go
package pulse

import (
	"context"
	"encoding/json"

	"pulsecode-go/bus"
	"pulsecode-go/errcode"
	"pulsecode-go/types"
	"pulsecode-go/x/timex"
)

// -----------------------------------------------------------------------------
// Entry point
// -----------------------------------------------------------------------------

// Run drives pulse channels over the bus: channel construction from
// retained config on "config/pulse", control verbs on
// pulse/channel/<name>/control/<verb>, retained info/state per channel and
// burst events on pulse/channel/<name>/burst.
func Run(ctx context.Context, conn *bus.Connection) {
	s := &service{
		conn:   conn,
		tx:     map[string]*TxChannel{},
		rx:     map[string]*RxChannel{},
		notify: make(chan string, 16),
	}
	s.loop(ctx)
}

type service struct {
	conn *bus.Connection

	tx map[string]*TxChannel
	rx map[string]*RxChannel

	// RX channels signal burst commits here from deferred context.
	notify chan string
}

// -----------------------------------------------------------------------------
// Main loop
// -----------------------------------------------------------------------------

func (s *service) loop(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.Topic{"config", "pulse"})
	ctrlSub := s.conn.Subscribe(bus.Topic{"pulse", "channel", bus.Wildcard, "control", bus.Wildcard})
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	s.publishState("", "idle", "awaiting_config")

	for {
		select {
		case <-ctx.Done():
			for name, ch := range s.tx {
				ch.Deinit()
				s.publishState(name, "released", "context_cancelled")
			}
			for name, ch := range s.rx {
				ch.Deinit()
				s.publishState(name, "released", "context_cancelled")
			}
			s.publishState("", "stopped", "context_cancelled")
			return

		case msg := <-cfgSub.Channel():
			var cfg Config
			if err := decodeJSON(msg.Payload, &cfg); err != nil {
				s.publishState("", "idle", "bad_config")
				continue
			}
			s.applyConfig(cfg)

		case msg := <-ctrlSub.Channel():
			s.handleControl(msg)

		case name := <-s.notify:
			s.drainBursts(name)
		}
	}
}

// -----------------------------------------------------------------------------
// Config
// -----------------------------------------------------------------------------

func (s *service) applyConfig(cfg Config) {
	for _, cc := range cfg.Channels {
		if cc.Name == "" || s.known(cc.Name) {
			continue
		}
		switch cc.Dir {
		case types.KindTx:
			if cc.Tx == nil {
				s.publishState(cc.Name, "idle", string(errcode.InvalidParams))
				continue
			}
			ch, err := NewTx(*cc.Tx)
			if err != nil {
				s.publishState(cc.Name, "idle", string(errcode.Of(err)))
				continue
			}
			s.tx[cc.Name] = ch
			s.publishInfo(cc.Name, types.Info{
				SchemaVersion: 1,
				Driver:        "pulse_tx",
				Detail: types.TxInfo{
					Pin:        cc.Tx.Pin,
					SourceFreq: ch.SourceFreq(),
					ClockDiv:   ch.ClockDiv(),
					IdleLevel:  cc.Tx.IdleLevel,
					Carrier:    cc.Tx.Carrier != nil,
				},
			})
			s.publishState(cc.Name, "idle", "ready")

		case types.KindRx:
			if cc.Rx == nil {
				s.publishState(cc.Name, "idle", string(errcode.InvalidParams))
				continue
			}
			ch, err := NewRx(*cc.Rx)
			if err != nil {
				s.publishState(cc.Name, "idle", string(errcode.Of(err)))
				continue
			}
			name := cc.Name
			ch.SetOnData(func() {
				select {
				case s.notify <- name:
				default:
				}
			})
			s.rx[name] = ch
			s.publishInfo(name, types.Info{
				SchemaVersion: 1,
				Driver:        "pulse_rx",
				Detail: types.RxInfo{
					Pin:          cc.Rx.Pin,
					ResolutionHz: cc.Rx.ResolutionHz,
					MinNs:        cc.Rx.MinNs,
					MaxNs:        cc.Rx.MaxNs,
				},
			})
			s.publishState(name, "idle", "ready")
		}
	}
}

func (s *service) known(name string) bool {
	_, okT := s.tx[name]
	_, okR := s.rx[name]
	return okT || okR
}

// -----------------------------------------------------------------------------
// Control
// -----------------------------------------------------------------------------

func (s *service) handleControl(msg *bus.Message) {
	// pulse / channel / <name> / control / <verb>
	if len(msg.Topic) != 5 {
		return
	}
	name, verb := msg.Topic[2], msg.Topic[4]

	var err error
	switch verb {
	case "transmit":
		var req types.TransmitReq
		if err = decodeJSON(msg.Payload, &req); err == nil {
			err = s.transmit(name, req)
		} else {
			err = errcode.InvalidPayload
		}
	case "set_loop":
		var req types.SetLoopReq
		if err = decodeJSON(msg.Payload, &req); err == nil {
			err = s.setLoop(name, req.Enabled)
		} else {
			err = errcode.InvalidPayload
		}
	case "read_pulses":
		err = s.readPulses(name)
	case "stop":
		err = s.stop(name)
	case "deinit":
		err = s.deinit(name)
	default:
		err = errcode.Unsupported
	}

	s.publishResult(name, verb, err)
}

func (s *service) transmit(name string, req types.TransmitReq) error {
	ch, ok := s.tx[name]
	if !ok {
		return errcode.UnknownChannel
	}
	s.publishState(name, "busy", "transmitting")
	err := ch.Transmit(req.Plan)
	if err == nil {
		s.publishState(name, "idle", "queued")
	} else {
		s.publishState(name, "idle", string(errcode.Of(err)))
	}
	return err
}

func (s *service) setLoop(name string, enabled bool) error {
	ch, ok := s.tx[name]
	if !ok {
		return errcode.UnknownChannel
	}
	ch.SetLoop(enabled)
	return nil
}

func (s *service) readPulses(name string) error {
	ch, ok := s.rx[name]
	if !ok {
		return errcode.UnknownChannel
	}
	if err := ch.ReadPulses(); err != nil {
		return err
	}
	s.publishState(name, "armed", "capturing")
	return nil
}

func (s *service) stop(name string) error {
	ch, ok := s.rx[name]
	if !ok {
		return errcode.UnknownChannel
	}
	ch.StopReadPulses()
	s.publishState(name, "idle", "stopped")
	return nil
}

func (s *service) deinit(name string) error {
	if ch, ok := s.tx[name]; ok {
		ch.Deinit()
		delete(s.tx, name)
		s.publishState(name, "released", "deinit")
		return nil
	}
	if ch, ok := s.rx[name]; ok {
		ch.Deinit()
		delete(s.rx, name)
		s.publishState(name, "released", "deinit")
		return nil
	}
	return errcode.UnknownChannel
}

// -----------------------------------------------------------------------------
// Bursts
// -----------------------------------------------------------------------------

func (s *service) drainBursts(name string) {
	ch, ok := s.rx[name]
	if !ok {
		return
	}
	for {
		pulses, ok := ch.GetData()
		if !ok {
			return
		}
		s.conn.Publish(s.conn.NewMessage(
			bus.Topic{"pulse", "channel", name, "burst"},
			types.Burst{Pulses: pulses, TS: timex.NowMs()},
			false,
		))
	}
}

// -----------------------------------------------------------------------------
// Publishing helpers
// -----------------------------------------------------------------------------

func (s *service) publishInfo(name string, info types.Info) {
	s.conn.Publish(s.conn.NewMessage(
		bus.Topic{"pulse", "channel", name, "info"}, info, true))
}

func (s *service) publishState(name, level, status string) {
	topic := bus.Topic{"pulse", "state"}
	if name != "" {
		topic = bus.Topic{"pulse", "channel", name, "state"}
	}
	s.conn.Publish(s.conn.NewMessage(topic,
		types.ChannelState{Level: level, Status: status, TS: timex.NowMs()}, true))
}

func (s *service) publishResult(name, verb string, err error) {
	topic := bus.Topic{"pulse", "channel", name, "result", verb}
	if err == nil {
		s.conn.Publish(s.conn.NewMessage(topic, types.OKReply{OK: true}, false))
		return
	}
	s.conn.Publish(s.conn.NewMessage(topic,
		types.ErrorReply{OK: false, Error: string(errcode.Of(err))}, false))
}

// decodeJSON accepts either an already-typed payload, raw JSON bytes, or a
// decoded map, and lands it in dst.
func decodeJSON[T any](src any, dst *T) error {
	if v, ok := src.(T); ok {
		*dst = v
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}
