// Command rotary-sensor samples a quadrature rotary encoder on a fixed timer,
// tracks its direction and position, and reports them over MQTT and HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/rotary-sensor/internal/decoder"
	"github.com/sweeney/rotary-sensor/internal/gpio"
	"github.com/sweeney/rotary-sensor/internal/logic"
	"github.com/sweeney/rotary-sensor/internal/mdns"
	"github.com/sweeney/rotary-sensor/internal/mqtt"
	"github.com/sweeney/rotary-sensor/internal/status"
	"github.com/sweeney/rotary-sensor/internal/timer"
	"github.com/sweeney/rotary-sensor/internal/web"
)

type options struct {
	backend string
	chip    string
	pinA    int
	pinB    int
	pinOut  int
	pullUp  bool

	baseClock  uint64
	divider    uint64
	sampleRate float64
	alarmTicks uint64

	poll      time.Duration
	heartbeat time.Duration
	broker    string
	payload   string
	httpAddr  string
	mdns      bool
	mlock     bool

	printState bool
	format     string
}

func main() {
	var o options
	flag.StringVar(&o.backend, "backend", gpio.BackendCdev, "GPIO backend (gpiocdev or periph)")
	flag.StringVar(&o.chip, "chip", gpio.DefaultChip, "GPIO chip (gpiocdev backend)")
	flag.IntVar(&o.pinA, "pin-a", gpio.DefaultPinA, "BCM pin number for encoder line A")
	flag.IntVar(&o.pinB, "pin-b", gpio.DefaultPinB, "BCM pin number for encoder line B")
	flag.IntVar(&o.pinOut, "pin-out", gpio.DefaultPinOut, "BCM pin number for the clockwise indicator")
	flag.BoolVar(&o.pullUp, "pull-up", true, "Bias encoder inputs high")
	flag.Uint64Var(&o.baseClock, "base-clock", timer.DefaultBaseClockHz, "Timer base clock in Hz")
	flag.Uint64Var(&o.divider, "divider", timer.DefaultDivider, "Timer clock divider")
	flag.Float64Var(&o.sampleRate, "sample-rate", timer.DefaultSampleRate, "Encoder sampling rate in Hz")
	flag.Uint64Var(&o.alarmTicks, "alarm-ticks", 0, "Timer alarm in counter ticks (overrides -sample-rate)")
	flag.DurationVar(&o.poll, "poll", time.Second, "Observer polling interval")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&o.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	flag.StringVar(&o.payload, "payload", string(mqtt.EncodingJSON), "MQTT event payload encoding (json or cbor)")
	flag.StringVar(&o.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.BoolVar(&o.mdns, "mdns", false, "Advertise the HTTP status page over mDNS")
	flag.BoolVar(&o.mlock, "mlock", false, "Lock process memory to avoid paging stalls while sampling")
	flag.BoolVar(&o.printState, "print-state", false, "Print current line levels and exit")
	flag.StringVar(&o.format, "format", status.OutputText, "Output format for -print-state (text, json or yaml)")

	flag.Parse()

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// timerConfig derives the sampling timer configuration. An explicit alarm
// wins over the requested rate.
func timerConfig(o options) (timer.Config, error) {
	cfg := timer.DefaultConfig()
	cfg.BaseClockHz = o.baseClock
	cfg.Divider = o.divider

	if o.alarmTicks > 0 {
		cfg.AlarmTicks = o.alarmTicks
	} else {
		ticks, err := timer.AlarmTicksFor(o.baseClock, o.divider, o.sampleRate)
		if err != nil {
			return timer.Config{}, err
		}
		cfg.AlarmTicks = ticks
	}

	if err := cfg.Validate(); err != nil {
		return timer.Config{}, err
	}
	return cfg, nil
}

// checkIntervals rejects loop intervals time.NewTicker cannot take.
func checkIntervals(o options) error {
	if o.poll <= 0 {
		return fmt.Errorf("invalid -poll %v: must be positive", o.poll)
	}
	if o.heartbeat < 0 {
		return fmt.Errorf("invalid -heartbeat %v: must be zero or positive", o.heartbeat)
	}
	return nil
}

func run(o options) error {
	if err := checkIntervals(o); err != nil {
		return err
	}

	lines, err := gpio.Open(gpio.Options{
		Backend: o.backend,
		Chip:    o.chip,
		PinA:    o.pinA,
		PinB:    o.pinB,
		PinOut:  o.pinOut,
		PullUp:  o.pullUp,
	})
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer lines.Close()

	// Print state mode
	if o.printState {
		a, b, err := lines.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		out, err := status.FormatLines(status.NewLineState(a, b), o.format)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
		return nil
	}

	cfg, err := timerConfig(o)
	if err != nil {
		return fmt.Errorf("timer config: %w", err)
	}
	enc, err := mqtt.ParseEncoding(o.payload)
	if err != nil {
		return err
	}

	if o.mlock {
		if err := timer.LockMemory(); err != nil {
			log.Printf("mlock: %v (continuing unlocked)", err)
		}
	}

	// Start sampling. The handler owns the lines from here on; the main
	// context only reads the shared state.
	state := logic.NewSharedState()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	platform := timer.NewTickerPlatform(ctx)
	src := timer.NewSource(platform, cfg)
	if err := src.Setup(decoder.New(state, lines, lines)); err != nil {
		return fmt.Errorf("start sampling: %w", err)
	}
	defer func() {
		cancel()
		<-platform.Done()
	}()
	log.Printf("sampling: %.2f Hz (base=%d divider=%d alarm=%d) backend=%s pins=%d,%d out=%d",
		cfg.Frequency(), cfg.BaseClockHz, cfg.Divider, cfg.AlarmTicks, o.backend, o.pinA, o.pinB, o.pinOut)

	// Initialize MQTT
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if o.broker != "" {
		p, err := mqtt.NewRealPublisher(o.broker, enc)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher, mqttStatus = p, p
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	statusCfg := status.Config{
		Backend:     o.backend,
		Chip:        o.chip,
		PinA:        o.pinA,
		PinB:        o.pinB,
		PinOut:      o.pinOut,
		BaseClockHz: cfg.BaseClockHz,
		Divider:     cfg.Divider,
		AlarmTicks:  cfg.AlarmTicks,
		SampleHz:    cfg.Frequency(),
		PollMs:      o.poll.Milliseconds(),
		HeartbeatMs: o.heartbeat.Milliseconds(),
		Broker:      o.broker,
		Payload:     string(enc),
		HTTPAddr:    o.httpAddr,
	}
	tracker := status.NewTracker(time.Now(), statusCfg)
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}

	// Publish startup event with full status snapshot
	if publisher != nil {
		snap := tracker.Snapshot()
		startupEvent := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startupEvent); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	// Start HTTP status server
	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", o.httpAddr)

		if o.mdns {
			if adv := advertise(o.httpAddr, statusCfg); adv != nil {
				defer adv.Shutdown()
			}
		}
	}

	log.Printf("started: poll=%v broker=%q payload=%s heartbeat=%v", o.poll, o.broker, enc, o.heartbeat)

	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(state, lines, publisher, mqttStatus, tracker, o.heartbeat, time.Now, ticker.C, sigCh)
}

// advertise registers the status page over mDNS. Failures are logged and
// leave the daemon running without an advertisement.
func advertise(httpAddr string, cfg status.Config) *mdns.Advertiser {
	port, err := mdns.PortFromAddr(httpAddr)
	if err != nil {
		log.Printf("mdns: %v", err)
		return nil
	}
	instance := "rotary-sensor"
	if host, err := os.Hostname(); err == nil {
		instance = "rotary-sensor-" + host
	}
	adv, err := mdns.Advertise(instance, port, mdns.TXTRecords(cfg))
	if err != nil {
		log.Printf("mdns: %v", err)
		return nil
	}
	log.Printf("mdns: advertising %s on port %d", instance, port)
	return adv
}

// lineDiagnostics reports absorbed line failures from the sampling context.
type lineDiagnostics interface {
	LineErrors() uint64
}

// runLoop polls the shared state on every tick, logs it, publishes observed
// changes and heartbeats, and keeps the status tracker current. publisher,
// mqttStatus, tracker and diag may be nil.
func runLoop(state *logic.SharedState, diag lineDiagnostics, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	observer := logic.NewObserver(now())

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if publisher == nil {
				return nil
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			r := state.Snapshot()
			log.Printf("observer: counter=%d direction=%s code=%d ticks=%d", r.Counter, r.Direction(), r.Previous, r.Ticks)

			for _, event := range observer.Process(r, t) {
				log.Printf("event: %s direction=%s steps=%d counter=%d", event.Type, event.Direction, event.Steps, event.Counter)
				if publisher == nil {
					continue
				}
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			var lineErrors uint64
			if diag != nil {
				lineErrors = diag.LineErrors()
			}

			// Check for heartbeat
			if hbData := observer.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v counter=%d rotate=%d direction=%d line_errors=%d",
					hbData.Uptime, hbData.Reading.Counter, hbData.Counts.Rotate, hbData.Counts.Direction, lineErrors)

				if publisher != nil {
					hbEvent := mqtt.SystemEvent{
						Timestamp: hbData.Timestamp,
						Event:     "HEARTBEAT",
					}
					if tracker != nil {
						if mqttStatus != nil {
							tracker.SetMQTTConnected(mqttStatus.IsConnected())
						}
						tracker.Update(r, observer.IsPrimed(), observer.EventCountsSnapshot(), lineErrors)
						snap := tracker.Snapshot()
						hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
					}
					if err := publisher.PublishSystem(hbEvent); err != nil {
						log.Printf("heartbeat publish error: %v", err)
					}
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(r, observer.IsPrimed(), observer.EventCountsSnapshot(), lineErrors)
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}
