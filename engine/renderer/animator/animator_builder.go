package animator

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithLooping sets whether playback wraps at the end of the clip. Animators loop by default.
//
// Parameters:
//   - loop: true to wrap, false to stop at the end
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the looping option to an animator
func WithLooping(loop bool) AnimatorBuilderOption {
	return func(a *animator) {
		a.loop = loop
	}
}

// WithSpeed sets the initial playback speed multiplier.
//
// Parameters:
//   - speed: the speed multiplier
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the speed option to an animator
func WithSpeed(speed float32) AnimatorBuilderOption {
	return func(a *animator) {
		a.speed = speed
	}
}
