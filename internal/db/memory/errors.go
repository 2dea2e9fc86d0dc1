package memory

import "errors"

var errWrongType = errors.New("WRONGTYPE operation against a key holding the wrong kind of value")
