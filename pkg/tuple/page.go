package tuple

import "storemy/pkg/primitives"

// PageID identifies a page anywhere in the engine (heap or B+-tree). Defined
// as an alias so the tuple/record/recovery layers and the storage layer
// share exactly one identity type.
type PageID = primitives.PageID
