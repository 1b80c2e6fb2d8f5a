/*
Package session serializes access to stored conversation trees.

Every read-modify-write of a conversation goes through Manager.WithLock, which
holds a reference-counted in-process mutex per conversation id and, when a
DistributedLocker is configured, a lock shared by all replicas.
*/
package session
