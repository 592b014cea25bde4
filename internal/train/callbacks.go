package train

// Signal is returned by every lifecycle hook.
type Signal int

const (
	// Continue lets the loop carry on.
	Continue Signal = iota
	// Stop asks the loop to halt. The loop honours it at the next epoch
	// boundary, so the phases of the current epoch still run.
	Stop
)

// Callback is any value implementing one or more of the hook interfaces
// below. Hooks a callback does not implement are skipped.
type Callback any

type TrainingStarter interface {
	OnTrainingStart() Signal
}

type EpochStarter interface {
	OnEpochStart(epoch int, phase *Phase) Signal
}

type BatchStarter interface {
	OnBatchStart(epoch int, phase *Phase) Signal
}

type BatchEnder interface {
	OnBatchEnd(epoch int, phase *Phase) Signal
}

type EpochEnder interface {
	OnEpochEnd(epoch int, phase *Phase) Signal
}

type TrainingEnder interface {
	OnTrainingEnd() Signal
}

// Controller is the view of a running loop handed to callbacks.
type Controller interface {
	SaveModel(path string) error
	Stopped() bool
}

// Binder is implemented by callbacks that need the running loop, for
// example to save the model.
type Binder interface {
	BindLoop(Controller)
}

// Group dispatches lifecycle events to callbacks in registration order.
// Every callback sees every event it implements, even after an earlier one
// returned Stop; the returned Signal is Stop if any of them asked for it.
type Group struct {
	callbacks []Callback
	loop      Controller
}

// NewGroup returns a group over cbs. Nil entries are dropped.
func NewGroup(cbs ...Callback) *Group {
	g := &Group{callbacks: make([]Callback, 0, len(cbs))}
	for _, cb := range cbs {
		if cb != nil {
			g.callbacks = append(g.callbacks, cb)
		}
	}
	return g
}

// Bind records the owning loop and hands it to every Binder.
func (g *Group) Bind(loop Controller) {
	g.loop = loop
	for _, cb := range g.callbacks {
		if b, ok := cb.(Binder); ok {
			b.BindLoop(loop)
		}
	}
}

// Loop returns the bound loop, or nil before Bind.
func (g *Group) Loop() Controller { return g.loop }

// Len returns the number of registered callbacks.
func (g *Group) Len() int { return len(g.callbacks) }

func (g *Group) TrainingStart() Signal {
	sig := Continue
	for _, cb := range g.callbacks {
		if h, ok := cb.(TrainingStarter); ok {
			sig = merge(sig, h.OnTrainingStart())
		}
	}
	return sig
}

func (g *Group) EpochStart(epoch int, phase *Phase) Signal {
	sig := Continue
	for _, cb := range g.callbacks {
		if h, ok := cb.(EpochStarter); ok {
			sig = merge(sig, h.OnEpochStart(epoch, phase))
		}
	}
	return sig
}

func (g *Group) BatchStart(epoch int, phase *Phase) Signal {
	sig := Continue
	for _, cb := range g.callbacks {
		if h, ok := cb.(BatchStarter); ok {
			sig = merge(sig, h.OnBatchStart(epoch, phase))
		}
	}
	return sig
}

func (g *Group) BatchEnd(epoch int, phase *Phase) Signal {
	sig := Continue
	for _, cb := range g.callbacks {
		if h, ok := cb.(BatchEnder); ok {
			sig = merge(sig, h.OnBatchEnd(epoch, phase))
		}
	}
	return sig
}

func (g *Group) EpochEnd(epoch int, phase *Phase) Signal {
	sig := Continue
	for _, cb := range g.callbacks {
		if h, ok := cb.(EpochEnder); ok {
			sig = merge(sig, h.OnEpochEnd(epoch, phase))
		}
	}
	return sig
}

func (g *Group) TrainingEnd() Signal {
	sig := Continue
	for _, cb := range g.callbacks {
		if h, ok := cb.(TrainingEnder); ok {
			sig = merge(sig, h.OnTrainingEnd())
		}
	}
	return sig
}

func merge(a, b Signal) Signal {
	if a == Stop || b == Stop {
		return Stop
	}
	return Continue
}
