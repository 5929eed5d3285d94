// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package broadcast

import "github.com/zeebo/errs"

// Error is the class for all errors originating in this package.
var Error = errs.Class("broadcast")
