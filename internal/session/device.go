package session

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DeviceState is the local media lifecycle.
type DeviceState int

const (
	DeviceUninitialized DeviceState = iota
	DevicePreviewing
	DeviceLive
	DeviceEnded
)

func (d DeviceState) String() string {
	switch d {
	case DevicePreviewing:
		return "previewing"
	case DeviceLive:
		return "live"
	case DeviceEnded:
		return "ended"
	}
	return "uninitialized"
}

// DefaultFrameInterval is the audio meter sampling period.
const DefaultFrameInterval = 16 * time.Millisecond

// Constraints selects the capture devices. Empty ids mean the system default.
type Constraints struct {
	CameraID     string
	MicrophoneID string
}

// Track is one captured audio or video track.
type Track interface {
	Kind() string
	Stop()
}

// FrequencyAnalyser exposes a frequency-domain view of the microphone input.
type FrequencyAnalyser interface {
	FrequencyBinCount() int
	// ByteFrequencyData fills dst with bin magnitudes in 0..255.
	ByteFrequencyData(dst []byte)
}

// MediaStream is an acquired camera and microphone capture.
type MediaStream interface {
	Tracks() []Track
	Analyser() FrequencyAnalyser // nil when the stream has no audio
}

// MediaDevices acquires capture streams.
type MediaDevices interface {
	Acquire(ctx context.Context, c Constraints) (MediaStream, error)
}

// AudioLevel maps frequency bins to a 0..100 display level.
func AudioLevel(bins []byte) int {
	if len(bins) == 0 {
		return 0
	}
	sum := 0
	for _, b := range bins {
		sum += int(b)
	}
	avg := float64(sum) / float64(len(bins))
	level := int(math.Round(avg / 255 * 100))
	if level > 100 {
		return 100
	}
	return level
}

// DeviceController owns the local media stream and its audio meter.
type DeviceController struct {
	devices  MediaDevices
	notifier Notifier
	logger   *zap.Logger
	frame    time.Duration
	onChange func()

	// op serializes acquire and release so overlapping calls cannot orphan a stream.
	op sync.Mutex

	mu          sync.Mutex
	state       DeviceState
	stream      MediaStream
	constraints Constraints
	level       int
	meterStop   chan struct{}
	meterDone   chan struct{}
}

// NewDeviceController creates a controller. frame <= 0 uses DefaultFrameInterval.
func NewDeviceController(devices MediaDevices, notifier Notifier, frame time.Duration, logger *zap.Logger) *DeviceController {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	if frame <= 0 {
		frame = DefaultFrameInterval
	}
	return &DeviceController{devices: devices, notifier: notifier, logger: logger, frame: frame}
}

// State returns the current state.
func (d *DeviceController) State() DeviceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Level returns the last audio meter reading.
func (d *DeviceController) Level() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.level
}

// Constraints returns the selected devices.
func (d *DeviceController) Constraints() Constraints {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.constraints
}

// StartPreview acquires the selected devices and enters Previewing.
// On failure the controller is left Uninitialized and a notification is emitted.
func (d *DeviceController) StartPreview(ctx context.Context) error {
	d.op.Lock()
	defer d.op.Unlock()
	d.mu.Lock()
	c := d.constraints
	d.mu.Unlock()
	return d.acquire(ctx, c, DevicePreviewing)
}

// SelectCamera changes the camera; a held stream is released and re-acquired.
func (d *DeviceController) SelectCamera(ctx context.Context, id string) error {
	return d.reselect(ctx, func(c *Constraints) { c.CameraID = id })
}

// SelectMicrophone changes the microphone; a held stream is released and re-acquired.
func (d *DeviceController) SelectMicrophone(ctx context.Context, id string) error {
	return d.reselect(ctx, func(c *Constraints) { c.MicrophoneID = id })
}

func (d *DeviceController) reselect(ctx context.Context, change func(*Constraints)) error {
	d.op.Lock()
	defer d.op.Unlock()
	d.mu.Lock()
	change(&d.constraints)
	c, state := d.constraints, d.state
	d.mu.Unlock()
	if state != DevicePreviewing && state != DeviceLive {
		return nil
	}
	return d.acquire(ctx, c, state)
}

// acquire must be called with op held.
func (d *DeviceController) acquire(ctx context.Context, c Constraints, next DeviceState) error {
	d.releaseStream()
	stream, err := d.devices.Acquire(ctx, c)
	if err != nil {
		d.setState(DeviceUninitialized)
		d.logger.Warn("media acquisition failed", zap.Error(err))
		d.notifier.Notify(failure("Camera/microphone unavailable", err))
		return err
	}

	d.mu.Lock()
	d.stream = stream
	d.state = next
	if a := stream.Analyser(); a != nil {
		d.meterStop, d.meterDone = make(chan struct{}), make(chan struct{})
		go d.meter(a, d.meterStop, d.meterDone)
	}
	d.mu.Unlock()
	d.changed()
	return nil
}

// GoLive moves a held stream to Live. Without a stream it is rejected with ErrNoActiveStream.
func (d *DeviceController) GoLive() error {
	d.mu.Lock()
	if d.stream == nil {
		d.mu.Unlock()
		return d.noStream()
	}
	d.state = DeviceLive
	d.mu.Unlock()
	d.changed()
	return nil
}

// requireStream checks for a held stream without changing state.
func (d *DeviceController) requireStream() error {
	d.mu.Lock()
	held := d.stream != nil
	d.mu.Unlock()
	if !held {
		return d.noStream()
	}
	return nil
}

func (d *DeviceController) noStream() error {
	d.notifier.Notify(failure("Cannot go live", ErrNoActiveStream))
	return ErrNoActiveStream
}

// End stops every track and enters Ended.
func (d *DeviceController) End() {
	d.op.Lock()
	defer d.op.Unlock()
	d.releaseStream()
	d.setState(DeviceEnded)
}

// Release stops every track. An Ended controller stays Ended; any other state becomes Uninitialized.
func (d *DeviceController) Release() {
	d.op.Lock()
	defer d.op.Unlock()
	d.releaseStream()
	d.mu.Lock()
	if d.state != DeviceEnded {
		d.state = DeviceUninitialized
	}
	d.mu.Unlock()
	d.changed()
}

func (d *DeviceController) releaseStream() {
	d.mu.Lock()
	stream, stop, done := d.stream, d.meterStop, d.meterDone
	d.stream, d.meterStop, d.meterDone = nil, nil, nil
	d.level = 0
	d.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	if stream != nil {
		for _, t := range stream.Tracks() {
			t.Stop()
		}
	}
}

func (d *DeviceController) setState(st DeviceState) {
	d.mu.Lock()
	d.state = st
	d.mu.Unlock()
	d.changed()
}

func (d *DeviceController) changed() {
	if d.onChange != nil {
		d.onChange()
	}
}

func (d *DeviceController) meter(a FrequencyAnalyser, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	bins := make([]byte, a.FrequencyBinCount())
	ticker := time.NewTicker(d.frame)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.ByteFrequencyData(bins)
			level := AudioLevel(bins)
			d.mu.Lock()
			d.level = level
			d.mu.Unlock()
		}
	}
}
