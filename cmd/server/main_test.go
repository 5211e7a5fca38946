package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx/fxtest"
)

type closer struct{ closed int }

func (c *closer) Close() error {
	c.closed++
	return nil
}

func TestCloseOnStop(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	c := &closer{}
	CloseOnStop(lc, c)
	CloseOnStop(lc, "not a closer")

	lc.RequireStart()
	assert.Equal(t, 0, c.closed)
	lc.RequireStop()
	assert.Equal(t, 1, c.closed)
}
