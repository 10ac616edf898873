package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudioLevel(t *testing.T) {
	tests := []struct {
		name string
		bins []byte
		want int
	}{
		{"silence", []byte{0, 0, 0, 0}, 0},
		{"empty", nil, 0},
		{"full", []byte{255, 255}, 100},
		{"half", []byte{0, 255}, 50},
		{"quiet", []byte{26, 25}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AudioLevel(tt.bins))
		})
	}
}

func TestDeviceLifecycle(t *testing.T) {
	devices := &fakeDevices{level: 255}
	n := &notes{}
	dc := NewDeviceController(devices, n, time.Millisecond, nil)
	assert.Equal(t, DeviceUninitialized, dc.State())

	require.NoError(t, dc.StartPreview(context.Background()))
	assert.Equal(t, DevicePreviewing, dc.State())
	require.Eventually(t, func() bool { return dc.Level() == 100 }, waitFor, tick)

	require.NoError(t, dc.GoLive())
	assert.Equal(t, DeviceLive, dc.State())

	dc.End()
	assert.Equal(t, DeviceEnded, dc.State())
	assert.Zero(t, dc.Level())
	for _, tr := range devices.streams[0].tracks {
		assert.True(t, tr.isStopped(), tr.kind)
	}

	dc.Release()
	assert.Equal(t, DeviceEnded, dc.State())
	assert.Zero(t, n.len())
}

func TestAcquireFailureStaysUninitialized(t *testing.T) {
	n := &notes{}
	dc := NewDeviceController(&fakeDevices{err: errors.New("permission denied")}, n, time.Millisecond, nil)

	err := dc.StartPreview(context.Background())

	assert.Error(t, err)
	assert.Equal(t, DeviceUninitialized, dc.State())
	assert.Equal(t, "Camera/microphone unavailable", n.last().Title)
	assert.Equal(t, VariantDestructive, n.last().Variant)
}

func TestGoLiveWithoutStream(t *testing.T) {
	n := &notes{}
	dc := NewDeviceController(&fakeDevices{}, n, time.Millisecond, nil)

	assert.ErrorIs(t, dc.GoLive(), ErrNoActiveStream)
	assert.Equal(t, DeviceUninitialized, dc.State())
	assert.Equal(t, 1, n.len())
}

func TestSelectDeviceReacquires(t *testing.T) {
	devices := &fakeDevices{}
	dc := NewDeviceController(devices, nil, time.Millisecond, nil)

	// no stream held yet: only the selection changes
	require.NoError(t, dc.SelectCamera(context.Background(), "cam-1"))
	assert.Empty(t, devices.streams)

	require.NoError(t, dc.StartPreview(context.Background()))
	require.NoError(t, dc.GoLive())
	require.NoError(t, dc.SelectMicrophone(context.Background(), "mic-2"))

	require.Len(t, devices.streams, 2)
	for _, tr := range devices.streams[0].tracks {
		assert.True(t, tr.isStopped())
	}
	assert.Equal(t, Constraints{CameraID: "cam-1", MicrophoneID: "mic-2"}, devices.streams[1].c)
	assert.Equal(t, DeviceLive, dc.State())

	dc.Release()
	assert.Equal(t, DeviceUninitialized, dc.State())
}

func TestOverlappingPreviewsKeepOneStream(t *testing.T) {
	devices := &fakeDevices{level: 128}
	dc := NewDeviceController(devices, &notes{}, time.Millisecond, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = dc.StartPreview(context.Background())
			} else {
				_ = dc.SelectCamera(context.Background(), "cam")
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, DevicePreviewing, dc.State())

	devices.mu.Lock()
	streams := append([]*fakeStream(nil), devices.streams...)
	devices.mu.Unlock()
	require.NotEmpty(t, streams)
	live := 0
	for _, s := range streams {
		if !s.tracks[0].isStopped() {
			live++
		}
	}
	assert.Equal(t, 1, live, "only the last acquired stream may stay open")

	dc.Release()
	for _, s := range streams {
		assert.True(t, s.tracks[0].isStopped())
		assert.True(t, s.tracks[1].isStopped())
	}
}
