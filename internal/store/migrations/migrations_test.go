package migrations

import (
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsReachVersion(test *testing.T) {
	test.Parallel()
	source, err := iofs.New(files, ".")
	require.NoError(test, err)
	defer source.Close()

	first, err := source.First()
	require.NoError(test, err)
	require.EqualValues(test, 1, first)

	version := first
	for {
		next, err := source.Next(version)
		if err != nil {
			break
		}
		version = next
	}
	require.EqualValues(test, Version, version)

	_, identifier, err := source.ReadDown(Version)
	require.NoError(test, err)
	require.Equal(test, "campaigns", identifier)
}
