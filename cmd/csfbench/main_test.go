package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCSVInts(t *testing.T) {
	ns, err := parseCSVInts(" 1000, 10000 ,,100000")
	require.NoError(t, err)
	require.Equal(t, []int{1000, 10000, 100000}, ns)

	ns, err = parseCSVInts("")
	require.NoError(t, err)
	require.Empty(t, ns)

	_, err = parseCSVInts("10,ten")
	require.Error(t, err)
}

func TestSplitCSV(t *testing.T) {
	require.Equal(t, []string{"bbhash", "rbtz"}, splitCSV("bbhash, rbtz,"))
	require.Nil(t, splitCSV(" "))
	require.Equal(t, "1,22,333", joinInts([]int{1, 22, 333}))
}
