package vitals

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifecycleObserverHiddenOncePerSegment(t *testing.T) {
	env := newFakeEnv(nil)
	o := NewLifecycleObserver(env, env, nil)

	hidden := 0
	var restores []RestoreEvent
	o.OnHidden(func() { hidden++ })
	o.OnRestore(func(ev RestoreEvent) {
		// observer state is already reset when recorders hear about the restore
		assert.True(t, math.IsInf(o.FirstHiddenTime(), 1))
		restores = append(restores, ev)
	})

	assert.True(t, math.IsInf(o.FirstHiddenTime(), 1))

	env.setVisibility(Hidden, 120)
	env.setVisibility(Visible, 130)
	env.setVisibility(Hidden, 140)
	assert.Equal(t, 1, hidden)
	assert.Equal(t, 120.0, o.FirstHiddenTime())

	env.restore(500)
	assert.Equal(t, []RestoreEvent{{Timestamp: 500, Segment: 1}}, restores)

	env.setVisibility(Hidden, 700)
	assert.Equal(t, 2, hidden)
	assert.Equal(t, 700.0, o.FirstHiddenTime())

	o.Finalize()
	assert.Equal(t, 2, hidden)
}

func TestLifecycleObserverHiddenAtStart(t *testing.T) {
	env := newFakeEnv(nil)
	env.visibility = Hidden
	o := NewLifecycleObserver(env, nil, nil)

	assert.Equal(t, 0.0, o.FirstHiddenTime())
	assert.True(t, o.Hidden())
}

func TestLifecycleObserverFinalizeFiresHidden(t *testing.T) {
	env := newFakeEnv(nil)
	o := NewLifecycleObserver(env, env, nil)

	hidden := 0
	o.OnHidden(func() { hidden++ })
	o.Finalize()
	o.Finalize()

	assert.Equal(t, 1, hidden)
	assert.True(t, math.IsInf(o.FirstHiddenTime(), 1))
}

func TestLifecycleObserverWhenActivated(t *testing.T) {
	env := newFakeEnv(nil)
	env.prerendering = true
	env.visibility = Hidden
	o := NewLifecycleObserver(env, env, env)

	// prerendered pages are hidden without having been hidden by the user
	assert.True(t, math.IsInf(o.FirstHiddenTime(), 1))

	ran := false
	o.WhenActivated(func() { ran = true })
	assert.False(t, ran)

	env.activate()
	assert.True(t, ran)

	ranAgain := false
	o.WhenActivated(func() { ranAgain = true })
	assert.True(t, ranAgain)
}
