/*
Package ports defines the boundary interfaces of Arbor.

The conversation core never talks to the network or to storage directly. It
depends on a Collaborator that answers questions and owns the authoritative
tree; the reference backend in turn depends on a TreeStore and an Answerer.

# Key Interfaces

  - Collaborator: submit a question, clear the conversation.
  - TreeSource: optional; fetch the current snapshot without changing it.
  - TreeStore: persist conversation trees (memory, Redis).
  - Answerer: produce an answer from a question and its ancestor context.
  - DistributedLocker: cross-replica mutual exclusion per conversation.
*/
package ports
