package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piyushkb/WhastapWeb/auth"
	"github.com/piyushkb/WhastapWeb/errors"
)

func TestNewKeyring_RequiresAKey(t *testing.T) {
	_, err := auth.NewKeyring(nil)
	require.Error(t, err)

	_, err = auth.NewKeyring([]string{"", ""})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestAuthorize(t *testing.T) {
	k, err := auth.NewKeyring([]string{"alpha-key", "beta-key"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		candidate string
		wantErr   bool
	}{
		{name: "first key matches", candidate: "alpha-key"},
		{name: "second key matches", candidate: "beta-key"},
		{name: "missing key", candidate: "", wantErr: true},
		{name: "wrong key", candidate: "gamma-key", wantErr: true},
		{name: "prefix of a valid key", candidate: "alpha", wantErr: true},
		{name: "valid key with suffix", candidate: "alpha-key-x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := k.Authorize(tt.candidate)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsUnauthorized(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewKeyring_SkipsEmptyEntries(t *testing.T) {
	k, err := auth.NewKeyring([]string{"", "real-key", ""})
	require.NoError(t, err)

	assert.NoError(t, k.Authorize("real-key"))
	assert.Error(t, k.Authorize(""))
}
