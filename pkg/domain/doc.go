/*
Package domain contains the core data model of an Arbor conversation.

A conversation is a forest of question/answer exchanges linked by parent
pointers. The collaborator that answers questions owns the authoritative Tree
and replaces it wholesale on every change; everything in this package is pure
data and structural queries over that snapshot.

# Key Entities

  - Node: one question/answer exchange, linked to its parent by ParentID.
  - Tree: the id -> Node mapping as received from the collaborator.
  - Index: parent -> children lookup built once per Tree replacement.
  - Position / Positions: canvas coordinates, kept apart from the Tree so
    manual drags never mutate the authoritative data.
*/
package domain
