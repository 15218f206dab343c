package teller

import "github.com/xraph/teller/id"

// ID is the primary identifier type for all Teller entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
