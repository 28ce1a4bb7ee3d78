// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simple

import (
	"math/rand"
	"strconv"
)

var (
	_ = rand.Int()
	_ = strconv.Unquote
)
