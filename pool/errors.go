package pool

import "errors"

// errNonPositiveInterior signals that a swap would drive the invariant's
// interior term non-positive; translated to InsufficientLiquidity at the
// quote/swap boundary (spec §4.1).
var errNonPositiveInterior = errors.New("pool: interior term would be non-positive")

// ErrInvalidTickRange is returned when adding a tick would overlap an
// existing one (spec §4.1).
var ErrInvalidTickRange = errors.New("pool: tick range overlaps an existing tick")
