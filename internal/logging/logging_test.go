package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blackarb/arbengine/internal/types"
)

func TestNew_FallsBackOnBadLevel(t *testing.T) {
	log, err := New(Config{Level: "not-a-level", Production: false})
	assert.NoError(t, err)
	assert.NotNil(t, log)
}

func TestChain_AttachesFields(t *testing.T) {
	log := Nop()
	scoped := Chain(log, types.Ethereum, "scanner")
	assert.NotNil(t, scoped)
}
