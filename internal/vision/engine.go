package vision

import (
	"sort"
	"sync"
)

// Engine is the per-frame detection-and-tracking contract. Process
// consumes one raw grayscale image and returns the live track set after
// continuation, retirement and admission. Implementations own their
// working buffers and are not safe for concurrent use.
type Engine interface {
	// Process advances the engine by one frame. The returned slice is
	// valid until the next call.
	Process(pixels []byte) []*Track
}

// CPUEngine is the reference engine: the Harris detector and the
// correlation tracker sharing one normalized image buffer per frame.
type CPUEngine struct {
	detector *Detector
	tracker  *Tracker
}

// NewCPUEngine creates the reference engine for the given image
// dimensions and tuning.
func NewCPUEngine(width, height int, settings Settings) *CPUEngine {
	return &CPUEngine{
		detector: NewDetector(width, height, settings),
		tracker:  NewTracker(width, height, settings),
	}
}

// Process runs detection then tracking for one frame.
func (e *CPUEngine) Process(pixels []byte) []*Track {
	candidates := e.detector.Detect(pixels)
	e.tracker.Update(e.detector.Normalized(), candidates)
	return e.tracker.Tracks()
}

// Tracker exposes the engine's track state for inspection.
func (e *CPUEngine) Tracker() *Tracker {
	return e.tracker
}

// EngineFactory builds an engine for one run.
type EngineFactory func(width, height int, settings Settings) Engine

var (
	engineRegistryMu sync.RWMutex
	engineRegistry   = map[string]EngineFactory{
		"cpu": func(w, h int, s Settings) Engine { return NewCPUEngine(w, h, s) },
	}
)

// RegisterEngine installs a named engine factory. An accelerated build
// registers its variant here; the run orchestration picks it up by name
// without knowing anything about the implementation.
func RegisterEngine(name string, factory EngineFactory) {
	engineRegistryMu.Lock()
	defer engineRegistryMu.Unlock()
	engineRegistry[name] = factory
}

// NewEngine builds the named engine, or the reference engine when the
// name is unregistered (an accelerated run without an accelerated build
// degrades to a second reference pass).
func NewEngine(name string, width, height int, settings Settings) Engine {
	engineRegistryMu.RLock()
	factory, ok := engineRegistry[name]
	engineRegistryMu.RUnlock()
	if !ok {
		return NewCPUEngine(width, height, settings)
	}
	return factory(width, height, settings)
}

// EngineNames lists the registered engines in sorted order.
func EngineNames() []string {
	engineRegistryMu.RLock()
	defer engineRegistryMu.RUnlock()
	names := make([]string, 0, len(engineRegistry))
	for name := range engineRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
