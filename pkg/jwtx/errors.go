package jwtx

import "errors"

// ErrDecode reports a credential whose payload could not be parsed. Callers
// treat an undecodable credential the same as an absent one.
var ErrDecode = errors.New("jwtx: malformed token")

// ErrNoSubject reports a decodable credential that carries no recognisable
// subject-id claim. Such a credential is invalid regardless of its expiry.
var ErrNoSubject = errors.New("jwtx: no subject id claim")
