package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/kodama/internal/domain"
)

func TestFingerprint_Deterministic(t *testing.T) {
	a := domain.Fingerprint(domain.TaskSummary, "some document text")
	b := domain.Fingerprint(domain.TaskSummary, "some document text")
	require.Equal(t, a, b)
}

func TestFingerprint_TaskTypeChangesKey(t *testing.T) {
	a := domain.Fingerprint(domain.TaskSummary, "some document text")
	b := domain.Fingerprint(domain.TaskSentiment, "some document text")
	require.NotEqual(t, a, b)
}

func TestFingerprint_NormalizesWhitespaceAndCase(t *testing.T) {
	a := domain.Fingerprint(domain.TaskSummary, "Some   Document\n\tText")
	b := domain.Fingerprint(domain.TaskSummary, "some document text")
	require.Equal(t, a, b)
}

func TestFingerprint_PrefixTruncation(t *testing.T) {
	base := strings.Repeat("a", 300)

	// Inputs differing only past the prefix share a fingerprint.
	a := domain.Fingerprint(domain.TaskSummary, base+"x")
	b := domain.Fingerprint(domain.TaskSummary, base+"y")
	require.Equal(t, a, b)

	// A difference inside the prefix changes it.
	c := domain.Fingerprint(domain.TaskSummary, "b"+base)
	require.NotEqual(t, a, c)
}
