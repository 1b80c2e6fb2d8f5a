package domain

import "errors"

// ErrEmptyQuestion is returned when a question is empty after trimming.
var ErrEmptyQuestion = errors.New("question is empty")

// ErrAskInFlight is returned when an ask is submitted while another is pending.
var ErrAskInFlight = errors.New("an ask is already in flight")

// ErrAskSuperseded is returned when a clear happened while an ask was pending.
// The late response is dropped.
var ErrAskSuperseded = errors.New("ask superseded by clear")

// ErrNodeNotFound is returned when a referenced node is not in the tree.
var ErrNodeNotFound = errors.New("node not found")

// ErrTreeNotFound is returned when a conversation id cannot be found in the store.
var ErrTreeNotFound = errors.New("conversation not found")
