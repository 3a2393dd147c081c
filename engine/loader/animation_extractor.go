package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/chewxy/math32"
)

const interpolationCubicSpline = "CUBICSPLINE"

// extractAnimations converts every document animation into a clip, in document order.
// Channels are grouped per node in the order the node is first targeted, so the result is
// the same on every import of the same document.
func (p *gltfParser) extractAnimations() ([]*model.AnimationClip, error) {
	clips := make([]*model.AnimationClip, 0, len(p.doc.Animations))
	for i := range p.doc.Animations {
		clip, err := p.extractAnimation(i)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

func (p *gltfParser) extractAnimation(index int) (*model.AnimationClip, error) {
	anim := &p.doc.Animations[index]
	clip := &model.AnimationClip{Name: anim.Name, Index: index}
	if clip.Name == "" {
		clip.Name = fmt.Sprintf("animation_%d", index)
	}

	byNode := make(map[int]int)
	for ci := range anim.Channels {
		ch := &anim.Channels[ci]
		if ch.Target.Node == nil || ch.Target.Path == "weights" {
			continue
		}
		node := *ch.Target.Node
		if node < 0 || node >= len(p.doc.Nodes) {
			return nil, structuralf(p.name, "channel %d node %d: %w", ci, node, errIndexOutOfRange)
		}
		if ch.Sampler < 0 || ch.Sampler >= len(anim.Samplers) {
			return nil, structuralf(p.name, "channel %d sampler %d: %w", ci, ch.Sampler, errIndexOutOfRange)
		}
		sampler := &anim.Samplers[ch.Sampler]

		times, err := p.readScalars(sampler.Input)
		if err != nil {
			return nil, err
		}
		for _, t := range times {
			clip.Duration = math32.Max(clip.Duration, t)
		}

		slot, seen := byNode[node]
		if !seen {
			slot = len(clip.Channels)
			byNode[node] = slot
			clip.Channels = append(clip.Channels, model.AnimationChannel{
				NodeIndex: int32(node),
				NodeName:  p.doc.Nodes[node].Name,
			})
		}
		target := &clip.Channels[slot]

		cubic := sampler.Interpolation == interpolationCubicSpline
		switch ch.Target.Path {
		case "translation", "scale":
			values, err := p.readVec3(sampler.Output)
			if err != nil {
				return nil, err
			}
			keys, err := p.vectorKeys(times, values, cubic)
			if err != nil {
				return nil, err
			}
			if ch.Target.Path == "translation" {
				target.PositionKeys = keys
			} else {
				target.ScaleKeys = keys
			}
		case "rotation":
			values, err := p.readVec4(sampler.Output)
			if err != nil {
				return nil, err
			}
			keys, err := p.quaternionKeys(times, values, cubic)
			if err != nil {
				return nil, err
			}
			target.RotationKeys = keys
		default:
			return nil, structuralf(p.name, "channel %d has unknown target path %q", ci, ch.Target.Path)
		}
	}
	return clip, nil
}

// keyValue picks the value of keyframe i. Cubic spline outputs store an in-tangent, the value
// and an out-tangent per keyframe; only the value is kept.
func keyValue[T any](values []T, i int, cubic bool) T {
	if cubic {
		return values[i*3+1]
	}
	return values[i]
}

func (p *gltfParser) checkKeyCount(times, values int, cubic bool) error {
	want := times
	if cubic {
		want = times * 3
	}
	if values != want {
		return structuralf(p.name, "sampler has %d outputs for %d keyframes", values, times)
	}
	return nil
}

func (p *gltfParser) vectorKeys(times []float32, values [][3]float32, cubic bool) ([]model.VectorKeyframe, error) {
	if err := p.checkKeyCount(len(times), len(values), cubic); err != nil {
		return nil, err
	}
	keys := make([]model.VectorKeyframe, len(times))
	for i, t := range times {
		keys[i] = model.VectorKeyframe{Time: t, Value: keyValue(values, i, cubic)}
	}
	return keys, nil
}

func (p *gltfParser) quaternionKeys(times []float32, values [][4]float32, cubic bool) ([]model.QuaternionKeyframe, error) {
	if err := p.checkKeyCount(len(times), len(values), cubic); err != nil {
		return nil, err
	}
	keys := make([]model.QuaternionKeyframe, len(times))
	for i, t := range times {
		keys[i] = model.QuaternionKeyframe{Time: t, Value: keyValue(values, i, cubic)}
	}
	return keys, nil
}
