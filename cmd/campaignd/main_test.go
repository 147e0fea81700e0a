package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/MarkoPoloResearchLab/campaigns/internal/auth"
	"github.com/stretchr/testify/require"
)

func TestTokenCommandIssuesVerifiableToken(test *testing.T) {
	rootCmd := newRootCommand()
	var output bytes.Buffer
	rootCmd.SetOut(&output)
	rootCmd.SetArgs([]string{
		"token",
		"--jwt-signing-key", "cli-test-key",
		"--subject", "0xf17f52151EbEF6C7334FAD080c5704D77216b732",
		"--ttl", "1h",
	})
	require.NoError(test, rootCmd.Execute())

	verifier, err := auth.NewVerifier([]byte("cli-test-key"), "campaignd")
	require.NoError(test, err)
	caller, err := verifier.Verify(strings.TrimSpace(output.String()))
	require.NoError(test, err)
	require.Equal(test, "0xf17f52151ebef6c7334fad080c5704d77216b732", caller.String())
}

func TestServeRequiresOwner(test *testing.T) {
	rootCmd := newRootCommand()
	rootCmd.SetArgs([]string{"serve", "--jwt-signing-key", "cli-test-key"})
	require.ErrorContains(test, rootCmd.Execute(), "owner address")
}
