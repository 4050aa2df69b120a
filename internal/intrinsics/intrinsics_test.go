package intrinsics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryHasCoreIntrinsics(t *testing.T) {
	r := Default()
	for _, name := range []string{"peek", "poke", "sei", "cli", "pha", "pla", "sizeof"} {
		_, ok := r.Lookup(name)
		assert.True(t, ok, "expected %q to be registered", name)
	}
}

func TestDuplicateRegistrationIsError(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Entry{Name: "peek"}))
	err := r.Register(Entry{Name: "peek"})
	require.Error(t, err)
}

func TestSizeofIsVariadicCompileTimeOnly(t *testing.T) {
	e, ok := Default().Lookup("sizeof")
	require.True(t, ok)
	assert.True(t, e.Variadic)
	assert.Equal(t, NoOpcode, e.Opcode)
	assert.Equal(t, CategoryCompileTime, e.Category)
}

func TestSeiIsBarrierWithSideEffect(t *testing.T) {
	e, ok := Default().Lookup("sei")
	require.True(t, ok)
	assert.True(t, e.Barrier)
	assert.True(t, e.SideEffect)
}
