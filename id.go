package permit

import "github.com/xraph/permit/id"

// ID is the identifier type used for resolutions and their log entries.
type ID = id.ID
