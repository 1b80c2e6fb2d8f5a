package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventAskStart  EventType = "ask_start"
	EventAskFinish EventType = "ask_finish"
	EventClear     EventType = "clear"
	EventLayout    EventType = "layout"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// AskEvent describes the start or the end of an ask.
type AskEvent struct {
	EventBase
	ParentID NodeID        `json:"parent_id,omitempty"`
	NodeID   NodeID        `json:"node_id,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// ClearEvent describes a clear request.
type ClearEvent struct {
	EventBase
	Err error `json:"-"`
}

// LayoutEvent describes one layout pass.
type LayoutEvent struct {
	EventBase
	Nodes    int           `json:"nodes"`
	Duration time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for observability. Nil hooks are skipped.
type LifecycleHooks struct {
	OnAskStart  func(context.Context, *AskEvent)
	OnAskFinish func(context.Context, *AskEvent)
	OnClear     func(context.Context, *ClearEvent)
	OnLayout    func(context.Context, *LayoutEvent)
}
