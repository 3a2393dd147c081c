package animator

import (
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/chewxy/math32"
)

// animator is the implementation of the Animator interface.
type animator struct {
	mu      sync.RWMutex
	clip    *model.AnimationClip
	time    float32
	speed   float32
	loop    bool
	playing bool
}

// Animator plays back a single animation clip on the CPU.
//
// Playback state (time, speed, looping) is advanced by Advance and read by Sample, which
// interpolates the clip's keyframes for one channel. All methods are safe for concurrent use.
type Animator interface {
	// Name returns the name of the clip this animator plays.
	//
	// Returns:
	//   - string: the clip name
	Name() string

	// Clip returns the clip this animator plays.
	//
	// Returns:
	//   - *model.AnimationClip: the clip
	Clip() *model.AnimationClip

	// Play starts playback from the beginning of the clip.
	Play()

	// Stop halts playback and rewinds to the beginning.
	Stop()

	// Playing reports whether the animator is currently playing.
	//
	// Returns:
	//   - bool: true while playing
	Playing() bool

	// Time returns the current playback position in seconds.
	//
	// Returns:
	//   - float32: the playback time
	Time() float32

	// SetTime moves the playback position. The value is clamped to the clip duration.
	//
	// Parameters:
	//   - t: the new playback time in seconds
	SetTime(t float32)

	// SetSpeed sets the playback speed multiplier (1.0 = normal, 0.5 = half speed).
	//
	// Parameters:
	//   - speed: the speed multiplier
	SetSpeed(speed float32)

	// SetLooping sets whether playback wraps at the end of the clip.
	//
	// Parameters:
	//   - loop: true to wrap, false to stop at the end
	SetLooping(loop bool)

	// Looping reports whether playback wraps at the end of the clip.
	//
	// Returns:
	//   - bool: true when looping
	Looping() bool

	// Advance moves playback forward by deltaTime scaled by the speed multiplier.
	// A non-looping animator stops when it reaches the end of the clip.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	Advance(deltaTime float32)

	// Sample interpolates the channel at index ch at the current playback time.
	// Components without keyframes keep the identity value.
	//
	// Parameters:
	//   - ch: the channel index within the clip
	//
	// Returns:
	//   - model.Transform: the interpolated local transform
	Sample(ch int) model.Transform
}

var _ Animator = &animator{}

// NewAnimator creates an Animator for the given clip. The animator starts stopped and looping.
// Panics if clip is nil.
//
// Parameters:
//   - clip: the animation clip to play
//   - options: variadic list of AnimatorBuilderOption functions to configure the animator
//
// Returns:
//   - Animator: the new animator
func NewAnimator(clip *model.AnimationClip, options ...AnimatorBuilderOption) Animator {
	if clip == nil {
		panic("animator: NewAnimator requires a non-nil clip")
	}
	a := &animator{
		clip:  clip,
		speed: 1.0,
		loop:  true,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

func (a *animator) Name() string {
	return a.clip.Name
}

func (a *animator) Clip() *model.AnimationClip {
	return a.clip
}

func (a *animator) Play() {
	a.mu.Lock()
	a.time = 0
	a.playing = true
	a.mu.Unlock()
}

func (a *animator) Stop() {
	a.mu.Lock()
	a.time = 0
	a.playing = false
	a.mu.Unlock()
}

func (a *animator) Playing() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.playing
}

func (a *animator) Time() float32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.time
}

func (a *animator) SetTime(t float32) {
	a.mu.Lock()
	a.time = math32.Max(0, math32.Min(t, a.clip.Duration))
	a.mu.Unlock()
}

func (a *animator) SetSpeed(speed float32) {
	a.mu.Lock()
	a.speed = speed
	a.mu.Unlock()
}

func (a *animator) SetLooping(loop bool) {
	a.mu.Lock()
	a.loop = loop
	a.mu.Unlock()
}

func (a *animator) Looping() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loop
}

func (a *animator) Advance(deltaTime float32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.playing {
		return
	}
	a.time += deltaTime * a.speed

	duration := a.clip.Duration
	if duration <= 0 {
		a.time = 0
		return
	}
	if a.time <= duration {
		return
	}
	if a.loop {
		a.time = math32.Mod(a.time, duration)
		return
	}
	a.time = duration
	a.playing = false
}

func (a *animator) Sample(ch int) model.Transform {
	out := model.IdentityTransform()
	if ch < 0 || ch >= len(a.clip.Channels) {
		return out
	}

	a.mu.RLock()
	t := a.time
	a.mu.RUnlock()

	channel := a.clip.Channels[ch]
	if v, ok := sampleVector(channel.PositionKeys, t); ok {
		out.Translation = v
	}
	if q, ok := sampleQuaternion(channel.RotationKeys, t); ok {
		out.Rotation = q
	}
	if v, ok := sampleVector(channel.ScaleKeys, t); ok {
		out.Scale = v
	}
	return out
}

// keyframeSpan finds the keyframes surrounding t and the interpolation factor between them.
func keyframeSpan(n int, timeAt func(int) float32, t float32) (int, int, float32) {
	if t <= timeAt(0) {
		return 0, 0, 0
	}
	if t >= timeAt(n-1) {
		return n - 1, n - 1, 0
	}
	next := sort.Search(n, func(i int) bool { return timeAt(i) > t })
	prev := next - 1
	span := timeAt(next) - timeAt(prev)
	if span <= 0 {
		return prev, prev, 0
	}
	return prev, next, (t - timeAt(prev)) / span
}

func sampleVector(keys []model.VectorKeyframe, t float32) ([3]float32, bool) {
	if len(keys) == 0 {
		return [3]float32{}, false
	}
	i, j, f := keyframeSpan(len(keys), func(k int) float32 { return keys[k].Time }, t)
	a, b := keys[i].Value, keys[j].Value
	return [3]float32{
		a[0] + (b[0]-a[0])*f,
		a[1] + (b[1]-a[1])*f,
		a[2] + (b[2]-a[2])*f,
	}, true
}

// sampleQuaternion uses normalized linear interpolation along the shortest arc.
func sampleQuaternion(keys []model.QuaternionKeyframe, t float32) ([4]float32, bool) {
	if len(keys) == 0 {
		return [4]float32{}, false
	}
	i, j, f := keyframeSpan(len(keys), func(k int) float32 { return keys[k].Time }, t)
	a, b := keys[i].Value, keys[j].Value

	dot := a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
	if dot < 0 {
		b = [4]float32{-b[0], -b[1], -b[2], -b[3]}
	}

	q := [4]float32{
		a[0] + (b[0]-a[0])*f,
		a[1] + (b[1]-a[1])*f,
		a[2] + (b[2]-a[2])*f,
		a[3] + (b[3]-a[3])*f,
	}
	length := math32.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	if length == 0 {
		return [4]float32{0, 0, 0, 1}, true
	}
	return [4]float32{q[0] / length, q[1] / length, q[2] / length, q[3] / length}, true
}
