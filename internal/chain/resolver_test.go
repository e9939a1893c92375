package chain

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProgramID = "79Za2f2rCStCvfTv74JPhDBS9BEW48mx9gNXaLvgFRdt"

func TestNewAccountResolver_RejectsInvalidProgramID(t *testing.T) {
	_, err := NewAccountResolver("not-base58!!!")
	assert.Error(t, err)

	// Valid base58, wrong length.
	_, err = NewAccountResolver("abc")
	assert.Error(t, err)
}

func TestAccountResolver_Deterministic(t *testing.T) {
	resolver, err := NewAccountResolver(testProgramID)
	require.NoError(t, err)

	properties := gopter.NewProperties(nil)

	properties.Property("campaign derivation is deterministic", prop.ForAll(
		func(id uint64) bool {
			a1, b1, err1 := resolver.DeriveCampaignAccount(id)
			a2, b2, err2 := resolver.DeriveCampaignAccount(id)
			return err1 == nil && err2 == nil && a1 == a2 && b1 == b2
		},
		gen.UInt64(),
	))

	properties.Property("campaign and vault addresses never collide", prop.ForAll(
		func(id uint64) bool {
			campaign, _, err1 := resolver.DeriveCampaignAccount(id)
			vault, _, err2 := resolver.DeriveVaultAccount(id)
			return err1 == nil && err2 == nil && campaign != vault
		},
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

func TestAccountResolver_DistinctIDs(t *testing.T) {
	resolver, err := NewAccountResolver(testProgramID)
	require.NoError(t, err)

	a, _, err := resolver.DeriveCampaignAccount(1)
	require.NoError(t, err)
	b, _, err := resolver.DeriveCampaignAccount(2)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestAccountResolver_SeparateInstancesAgree(t *testing.T) {
	r1, err := NewAccountResolver(testProgramID)
	require.NoError(t, err)
	r2, err := NewAccountResolver(testProgramID)
	require.NoError(t, err)

	a1, bump1, err := r1.DeriveVaultAccount(42)
	require.NoError(t, err)
	a2, bump2, err := r2.DeriveVaultAccount(42)
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.Equal(t, bump1, bump2)
}
