package models

import "github.com/google/uuid"

// ensureID assigns a random id when the caller did not supply one. Ids are
// generated in Go so the same models work against postgres and sqlite.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
