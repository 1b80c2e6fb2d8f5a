/*
Package canvas holds the interaction state of the conversation canvas.

All pointer handling is expressed as a pure reducer: Reduce(State, Event)
returns the next State and never mutates its input. A rendering surface
(terminal, browser bridge, tests) translates its raw input into Events and
draws whatever the resulting State says.

Drag and pan are mutually exclusive gestures. Both end on PointerReleased and
on PointerLeft, so a gesture can never stick after the pointer leaves the
surface. Selection is independent of gestures.
*/
package canvas
