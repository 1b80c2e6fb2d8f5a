/*
Package backend is the reference collaborator: it owns node id assignment,
grows conversation trees one exchange at a time and asks an Answerer for each
answer with the chain of exchanges above the new node as context.

Trees are persisted through a session.Manager, so any ports.TreeStore (memory,
redis) and any ports.DistributedLocker can back it. Answering happens outside
the conversation lock; only the append is serialized.
*/
package backend
