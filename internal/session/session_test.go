package session

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/recstudio/internal/compose"
	"github.com/ManuGH/recstudio/internal/source"
	"github.com/ManuGH/recstudio/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.CanvasWidth = 64
	cfg.CanvasHeight = 36
	cfg.OutputDir = t.TempDir()
	return cfg
}

// rig bundles the fakes a session test drives.
type rig struct {
	capturer *testutil.FakeCapturer
	registry *source.Registry
	encoder  *testutil.FakeEncoder
	clock    *testutil.FakeClock
	session  *Session
}

func newRig(t *testing.T, cfg Config, opts ...Option) *rig {
	t.Helper()
	r := &rig{
		capturer: testutil.NewFakeCapturer(),
		encoder:  testutil.NewFakeEncoder(),
		clock:    testutil.NewFakeClock(),
	}
	r.registry = source.NewRegistry(r.capturer)
	opts = append([]Option{WithClock(r.clock)}, opts...)
	r.session = New(cfg, r.registry, r.encoder, opts...)
	t.Cleanup(r.session.Reset)
	return r
}

func (r *rig) acquireAll(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := r.registry.AcquireScreen(ctx, source.Constraints{})
	require.NoError(t, err)
	_, mic, err := r.registry.AcquireCameraAndMicrophone(ctx, source.Constraints{SampleRate: 48000})
	require.NoError(t, err)
	require.NotNil(t, mic)
}

// fireFrame delivers one primary heartbeat and waits for the compositor
// to process it.
func (r *rig) fireFrame(t *testing.T, want int) {
	t.Helper()
	ticker := r.clock.WaitTicker(time.Second / 30)
	require.NotNil(t, ticker, "primary ticker never created")
	ticker.Fire()
	require.Eventually(t, func() bool { return r.encoder.Frames() >= want },
		2*time.Second, time.Millisecond)
}

func TestStartWithoutSourcesRejected(t *testing.T) {
	r := newRig(t, testConfig(t))
	err := r.session.Start(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveSource)
	assert.Equal(t, StateIdle, r.session.State())
}

func TestRecordStopProducesArtifact(t *testing.T) {
	cfg := testConfig(t)
	r := newRig(t, cfg)
	r.acquireAll(t)
	ctx := context.Background()

	require.NoError(t, r.session.Start(ctx))
	assert.Equal(t, StateRecording, r.session.State())
	assert.NotEmpty(t, r.session.ID())

	r.fireFrame(t, 1)
	r.clock.Advance(500 * time.Millisecond)
	r.fireFrame(t, 2)

	// Half a second of wall time owes the encoder half a second of PCM.
	require.Eventually(t, func() bool { return r.encoder.AudioSamples() == cfg.SampleRate/2 },
		2*time.Second, time.Millisecond)

	r.clock.Advance(1500 * time.Millisecond)
	art, err := r.session.RequestStop(ctx, StopRequest{Reason: "user"})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, r.session.State())

	require.NotNil(t, art)
	assert.NotEmpty(t, art.Bytes())
	assert.Equal(t, 2*time.Second, art.Duration())
	assert.True(t, strings.HasPrefix(art.URL(), "file://"), "persisted artifact has a file URL")
	_, statErr := os.Stat(strings.TrimPrefix(art.URL(), "file://"))
	assert.NoError(t, statErr)

	assert.Same(t, art, r.session.Artifact())
	assert.Empty(t, r.registry.ActiveKinds(), "stop without preserve releases everything")
	assert.False(t, r.encoder.Running())
}

func TestStopPreservesRetakeSources(t *testing.T) {
	r := newRig(t, testConfig(t))
	r.acquireAll(t)
	ctx := context.Background()

	require.NoError(t, r.session.Start(ctx))
	r.fireFrame(t, 1)

	_, err := r.session.RequestStop(ctx, StopRequest{Preserve: PreserveForRetake(), Reason: "retake"})
	require.NoError(t, err)

	kinds := r.registry.ActiveKinds()
	assert.ElementsMatch(t, []source.Kind{source.Camera, source.Microphone}, kinds)
	cam := r.capturer.Acquisition(source.Camera)
	require.NotNil(t, cam)
	assert.False(t, cam.Video().(*testutil.FakeVideoTrack).Stopped(), "preserved camera keeps its track")
}

func TestScreenDeniedStillRecordsCameraOnly(t *testing.T) {
	r := newRig(t, testConfig(t))
	r.capturer.FailWith(source.Screen, source.ReasonPermissionDenied)
	ctx := context.Background()

	_, err := r.registry.AcquireScreen(ctx, source.Constraints{})
	require.Error(t, err)
	assert.Equal(t, source.ReasonPermissionDenied, source.ReasonOf(err))

	cam, mic, err := r.registry.AcquireCameraAndMicrophone(ctx, source.Constraints{SampleRate: 48000})
	require.NoError(t, err)
	require.NotNil(t, cam)
	require.NotNil(t, mic)

	require.NoError(t, r.session.Start(ctx))
	r.fireFrame(t, 1)

	// Without a screen the camera fills the whole canvas.
	px := r.encoder.LastFrame().RGBAAt(32, 18)
	assert.Greater(t, int(px.R), 200, "camera frame is red, got %+v", px)
	assert.Less(t, int(px.B), 50)

	art, err := r.session.RequestStop(ctx, StopRequest{Reason: "user"})
	require.NoError(t, err)
	assert.NotEmpty(t, art.Bytes())
}

func TestCameraUnavailableFallsBackToMicrophone(t *testing.T) {
	r := newRig(t, testConfig(t))
	r.capturer.FailWith(source.Camera, source.ReasonNoDevice)
	ctx := context.Background()

	cam, mic, err := r.registry.AcquireCameraAndMicrophone(ctx, source.Constraints{SampleRate: 48000})
	require.NoError(t, err, "a missing camera must not fail the voice track")
	assert.Nil(t, cam)
	require.NotNil(t, mic)

	_, err = r.registry.AcquireScreen(ctx, source.Constraints{})
	require.NoError(t, err)

	require.NoError(t, r.session.Start(ctx))
	r.fireFrame(t, 1)

	px := r.encoder.LastFrame().RGBAAt(32, 18)
	assert.Greater(t, int(px.B), 200, "screen frame is blue, got %+v", px)

	r.clock.Advance(time.Second)
	art, err := r.session.RequestStop(ctx, StopRequest{Reason: "user"})
	require.NoError(t, err)
	assert.NotEmpty(t, art.Bytes())
}

func TestExternalScreenEndFinalizesRecording(t *testing.T) {
	r := newRig(t, testConfig(t))
	r.acquireAll(t)
	ctx := context.Background()

	require.NoError(t, r.session.Start(ctx))
	r.fireFrame(t, 1)
	r.clock.Advance(time.Second)

	// Host-side "stop sharing": the session must finalize, not fault.
	r.capturer.Acquisition(source.Screen).TriggerEnd()

	assert.Equal(t, StateCompleted, r.session.State())
	require.NotNil(t, r.session.Artifact())
	assert.NotEmpty(t, r.session.Artifact().Bytes())

	// Camera and microphone survive for a retake.
	assert.ElementsMatch(t, []source.Kind{source.Camera, source.Microphone}, r.registry.ActiveKinds())
}

func TestMaxDurationStopsExactlyOnce(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxDuration = 2 * time.Second
	r := newRig(t, cfg)
	r.acquireAll(t)
	ctx := context.Background()

	require.NoError(t, r.session.Start(ctx))
	r.fireFrame(t, 1)

	wd := r.clock.WaitTicker(time.Second)
	require.NotNil(t, wd, "watchdog ticker never created")

	// One second in: below the ceiling, still recording.
	r.clock.Advance(time.Second)
	wd.Fire()
	require.Eventually(t, func() bool { return r.session.Elapsed() == 1 },
		2*time.Second, time.Millisecond)
	assert.Equal(t, StateRecording, r.session.State())

	// The ceiling tick stops through the normal path.
	r.clock.Advance(time.Second)
	wd.Fire()
	require.Eventually(t, func() bool { return r.session.State() == StateCompleted },
		2*time.Second, time.Millisecond)

	art := r.session.Artifact()
	require.NotNil(t, art)
	assert.Equal(t, 2*time.Second, art.Duration())

	// Retake sources survive a watchdog stop.
	assert.ElementsMatch(t, []source.Kind{source.Camera, source.Microphone}, r.registry.ActiveKinds())

	// A second stop attempt finds no recording to stop.
	_, err := r.session.RequestStop(ctx, StopRequest{Reason: "late"})
	assert.Error(t, err)
	assert.Equal(t, StateCompleted, r.session.State())
}

func TestHiddenViewDrawsOnFallbackTick(t *testing.T) {
	var visible atomic.Bool
	visible.Store(true)
	r := newRig(t, testConfig(t), WithVisibilityProbe(visible.Load))
	r.acquireAll(t)
	ctx := context.Background()

	require.NoError(t, r.session.Start(ctx))
	r.fireFrame(t, 1)

	visible.Store(false)
	primary := r.clock.Ticker(time.Second / 30)
	fallback := r.clock.Ticker(100 * time.Millisecond)
	require.NotNil(t, fallback)

	// A primary tick while hidden is skipped; the fallback one draws.
	primary.Fire()
	fallback.Fire()
	require.Eventually(t, func() bool { return r.encoder.Frames() >= 2 },
		2*time.Second, time.Millisecond)
	assert.Equal(t, 2, r.encoder.Frames(), "hidden primary tick must not draw")

	_, err := r.session.RequestStop(ctx, StopRequest{Reason: "user"})
	require.NoError(t, err)
}

func TestToggleCameraDropsItFromOutput(t *testing.T) {
	r := newRig(t, testConfig(t))
	r.acquireAll(t)
	ctx := context.Background()
	require.NoError(t, r.session.SetLayout(compose.LayoutCameraOnlyCover))

	require.NoError(t, r.session.Start(ctx))
	r.fireFrame(t, 1)
	px := r.encoder.LastFrame().RGBAAt(32, 18)
	assert.Greater(t, int(px.R), 200, "camera fills the canvas, got %+v", px)

	// Muting the camera degrades to the screen without renegotiating.
	require.True(t, r.session.ToggleCamera(false))
	r.fireFrame(t, 2)
	px = r.encoder.LastFrame().RGBAAt(32, 18)
	assert.Greater(t, int(px.B), 200, "muted camera leaves the screen, got %+v", px)

	require.True(t, r.session.ToggleCamera(true))
	r.fireFrame(t, 3)
	px = r.encoder.LastFrame().RGBAAt(32, 18)
	assert.Greater(t, int(px.R), 200, "unmuted camera returns, got %+v", px)

	require.True(t, r.session.ToggleMicrophone(false))
	_, err := r.session.RequestStop(ctx, StopRequest{Reason: "user"})
	require.NoError(t, err)
}

func TestEncoderStartFailureFaults(t *testing.T) {
	r := newRig(t, testConfig(t))
	r.encoder.StartErr = errors.New("spawn failed")
	r.acquireAll(t)

	err := r.session.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateError, r.session.State())
	assert.ErrorContains(t, r.session.Err(), "spawn failed")

	// Fault teardown must not leave a device open.
	require.Eventually(t, func() bool { return len(r.registry.ActiveKinds()) == 0 },
		2*time.Second, time.Millisecond)
}

func TestEncoderWriteFailureFaults(t *testing.T) {
	r := newRig(t, testConfig(t))
	r.encoder.FrameErrAfter = 1
	r.acquireAll(t)

	require.NoError(t, r.session.Start(context.Background()))
	r.fireFrame(t, 1)

	ticker := r.clock.Ticker(time.Second / 30)
	ticker.Fire()
	require.Eventually(t, func() bool { return r.session.State() == StateError },
		2*time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return len(r.registry.ActiveKinds()) == 0 },
		2*time.Second, time.Millisecond)
	assert.Nil(t, r.session.Artifact(), "a faulted run yields no artifact")
}

func TestResetReleasesArtifactAndSources(t *testing.T) {
	r := newRig(t, testConfig(t))
	r.acquireAll(t)
	ctx := context.Background()

	require.NoError(t, r.session.Start(ctx))
	r.fireFrame(t, 1)
	_, err := r.session.RequestStop(ctx, StopRequest{Preserve: PreserveForRetake(), Reason: "retake"})
	require.NoError(t, err)
	art := r.session.Artifact()
	require.NotNil(t, art)

	r.session.Reset()

	assert.Equal(t, StateIdle, r.session.State())
	assert.Empty(t, r.session.ID())
	assert.Nil(t, r.session.Artifact())
	assert.True(t, art.Released(), "reset frees the previous artifact")
	assert.Empty(t, r.registry.ActiveKinds())
	assert.Zero(t, r.session.Elapsed())
}

func TestResetWhileRecordingAborts(t *testing.T) {
	r := newRig(t, testConfig(t))
	r.acquireAll(t)

	require.NoError(t, r.session.Start(context.Background()))
	r.fireFrame(t, 1)

	r.session.Reset()

	assert.Equal(t, StateIdle, r.session.State())
	assert.False(t, r.encoder.Running())
	assert.Empty(t, r.registry.ActiveKinds())
	assert.Nil(t, r.session.Artifact())
}

func TestStateChangeNotifications(t *testing.T) {
	r := newRig(t, testConfig(t))
	r.acquireAll(t)
	ctx := context.Background()

	var states []State
	r.session.OnStateChange(func(s State) { states = append(states, s) })

	require.NoError(t, r.session.Start(ctx))
	_, err := r.session.RequestStop(ctx, StopRequest{Reason: "user"})
	require.NoError(t, err)

	assert.Equal(t, []State{StateInitializing, StateRecording, StateStopping, StateCompleted}, states)
}
