// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !preview

package preview

import (
	"context"
	"testing"

	"github.com/gogpu/daro/framebuf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunUnavailable(t *testing.T) {
	x, err := framebuf.New(2, 2)
	require.NoError(t, err)
	assert.ErrorIs(t, Run(context.Background(), FromExchange(x), Options{}), ErrUnavailable)
}
