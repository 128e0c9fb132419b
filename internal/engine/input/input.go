// Package input turns SDL2 events into orbit gestures.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// touchMouseID marks mouse events SDL synthesizes from touches.
const touchMouseID = ^uint32(0)

// EventType identifies a processed event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventDrag
	EventZoom
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Width  int
	Height int

	// Drag delta in pixels, or zoom steps (positive zooms in).
	DX, DY float32
	Zoom   float32
}

// Input collects the events of one frame.
type Input struct {
	events   []Event
	dragging bool

	// Pixels per normalized touch unit, updated on resize.
	width, height float32
}

// New creates an input handler for a window of the given size.
func New(width, height int) *Input {
	return &Input{
		events: make([]Event, 0, 16),
		width:  float32(width),
		height: float32(height),
	}
}

// Update polls SDL events. It returns true when the viewer should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})
			return true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED {
				i.width, i.height = float32(e.Data1), float32(e.Data2)
				i.events = append(i.events, Event{
					Type:   EventWindowResize,
					Width:  int(e.Data1),
					Height: int(e.Data2),
				})
			}

		case *sdl.KeyboardEvent:
			if e.Type == sdl.KEYDOWN {
				i.events = append(i.events, Event{Type: EventKeyDown, Key: e.Keysym.Scancode})
			}

		case *sdl.MouseButtonEvent:
			// Touch input also arrives as fingers; ignore its synthesized mouse events.
			if e.Which == touchMouseID || e.Button != sdl.BUTTON_LEFT {
				continue
			}
			i.dragging = e.Type == sdl.MOUSEBUTTONDOWN

		case *sdl.MouseMotionEvent:
			if e.Which == touchMouseID || !i.dragging {
				continue
			}
			i.events = append(i.events, Event{Type: EventDrag, DX: float32(e.XRel), DY: float32(e.YRel)})

		case *sdl.MouseWheelEvent:
			i.events = append(i.events, Event{Type: EventZoom, Zoom: float32(e.Y)})

		case *sdl.TouchFingerEvent:
			if e.Type == sdl.FINGERMOTION && sdl.GetNumTouchFingers(e.TouchID) == 1 {
				i.events = append(i.events, Event{
					Type: EventDrag,
					DX:   e.DX * i.width,
					DY:   e.DY * i.height,
				})
			}

		case *sdl.MultiGestureEvent:
			if e.NumFingers >= 2 && e.DDist != 0 {
				i.events = append(i.events, Event{Type: EventZoom, Zoom: e.DDist * 10})
			}
		}
	}

	return false
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// IsKeyPressed checks if a specific key was pressed this frame.
func (i *Input) IsKeyPressed(scancode sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == scancode {
			return true
		}
	}
	return false
}
