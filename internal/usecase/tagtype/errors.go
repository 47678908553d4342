// Package tagtype manages the tag types addon providers introduce.
package tagtype

import "errors"

// ErrNameExists is returned by ValidateUnique when the tag type is
// already registered.
var ErrNameExists = errors.New("tag type already exists")
