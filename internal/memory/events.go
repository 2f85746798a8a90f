package memory

import "github.com/rocketscienceinc/memory-backend/internal/entity"

// Event is anything the controller loop consumes.
type Event interface {
	event()
}

// FlipRequest - a click on the card at Cell.
type FlipRequest struct {
	Cell int
}

// StartRequest - a click on the start control.
type StartRequest struct{}

// AttachView - switches rendering to another view and redraws everything on it.
type AttachView struct {
	View View
}

// DetachView - stops rendering on View if it is still the current view.
type DetachView struct {
	View View
}

type tickEvent struct{}

type resolveEvent struct {
	task int
}

type winNoticeEvent struct {
	task int
}

type idleEvent struct {
	task int
}

type snapshotRequest struct {
	reply chan *entity.Game
}

func (FlipRequest) event()     {}
func (StartRequest) event()    {}
func (AttachView) event()      {}
func (DetachView) event()      {}
func (tickEvent) event()       {}
func (resolveEvent) event()    {}
func (winNoticeEvent) event()  {}
func (idleEvent) event()       {}
func (snapshotRequest) event() {}
