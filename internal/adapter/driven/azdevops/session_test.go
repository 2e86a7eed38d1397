package azdevops

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvanburen/azpanel/internal/domain/port/driven"
)

func TestSession_ResolvePrecedence(t *testing.T) {
	s := NewSession("default-pat")

	pat, err := s.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "default-pat", pat)

	s.SetOverride("session-pat")
	pat, err = s.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "session-pat", pat)

	s.ClearOverride()
	pat, err = s.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "default-pat", pat)
}

func TestSession_NoCredential(t *testing.T) {
	s := NewSession("")

	_, err := s.Resolve()
	assert.ErrorIs(t, err, driven.ErrNoCredential)
}

func TestSession_InvalidateKeepsDefault(t *testing.T) {
	s := NewSession("default-pat")
	s.SetOverride("expired-pat")

	s.Invalidate()

	pat, err := s.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "default-pat", pat)
}

func TestSession_InvalidateWithoutDefault(t *testing.T) {
	s := NewSession("")
	s.SetOverride("expired-pat")

	s.Invalidate()

	_, err := s.Resolve()
	assert.ErrorIs(t, err, driven.ErrNoCredential)
}

func TestSession_SetDefault(t *testing.T) {
	s := NewSession("")
	s.SetDefault("stored-pat")

	pat, err := s.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "stored-pat", pat)
}

func TestBasicAuthValue(t *testing.T) {
	got := basicAuthValue("secret")
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte(":secret"))
	assert.Equal(t, want, got)
}
