package configs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRanges(t *testing.T) {
	testCases := []struct {
		name    string
		raw     map[string]string
		field   string
		message string
	}{
		{"scheduling class too high", map[string]string{"scheduling-class": "15"}, "scheduling-class", "must be 0-9, but got: 15"},
		{"cpu rate zero", map[string]string{"cpu-rate": "0"}, "cpu-rate", "expected: integer value"},
		{"cpu rate too high", map[string]string{"cpu-rate": "101"}, "cpu-rate", "must be 1-100, but got: 101"},
		{"cpu weight zero", map[string]string{"cpu-weight": "0"}, "cpu-weight", "expected: integer value"},
		{"cpu weight too high", map[string]string{"cpu-weight": "10"}, "cpu-weight", "must be 1-9, but got: 10"},
		{"memory not a number", map[string]string{"memory": "lots"}, "memory", "found 'lots'"},
		{"memory zero", map[string]string{"memory": "0"}, "memory", "found '0'"},
		{"negative processes", map[string]string{"processes": "-1"}, "processes", "expected: integer value"},
		{"bad boolean", map[string]string{"breakaway": "true"}, "breakaway", `"yes" or "no"`},
		{"ui mask too wide", map[string]string{"ui-restrictions": "256"}, "ui-restrictions", "must be 1-255"},
		{"memory overflows bytes", map[string]string{"memory": "18446744073709551615"}, "memory", "but got"},
		{"rate and weight together", map[string]string{"cpu-rate": "50", "cpu-weight": "5"}, "cpu-weight", "mutually exclusive"},
		{"unknown key", map[string]string{"swap": "1"}, "swap", "unknown limit"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l, err := Build(tc.raw, "calc")
			require.Error(t, err)
			assert.Nil(t, l)
			cerr, ok := err.(*ConfigurationError)
			require.True(t, ok, "expected *ConfigurationError, got %T", err)
			assert.Equal(t, tc.field, cerr.Field)
			assert.Contains(t, cerr.Detail, tc.message)
		})
	}
}

func TestBuildAcceptsBounds(t *testing.T) {
	l, err := Build(map[string]string{
		"scheduling-class": "0",
		"cpu-rate":         "100",
		"ui-restrictions":  "255",
		"affinity":         "0x5",
		"priority":         "32",
		"breakaway":        "no",
	}, "calc")
	require.NoError(t, err)
	require.NotNil(t, l.SchedulingClass)
	assert.Equal(t, uint32(0), *l.SchedulingClass)
	assert.Equal(t, uint32(100), *l.CPURatePercent)
	assert.Equal(t, uint32(255), *l.UIRestrictions)
	assert.Equal(t, uint64(5), *l.AffinityMask)
	assert.Equal(t, PriorityNormal, *l.PriorityClass)
	require.NotNil(t, l.AllowBreakaway)
	assert.False(t, *l.AllowBreakaway)
}

func TestBuildLeavesAbsentFieldsNil(t *testing.T) {
	l, err := Build(map[string]string{"memory": "50", "cpu-time": "10"}, "calc")
	require.NoError(t, err)
	assert.Equal(t, uint64(50), *l.TotalCommitMB)
	assert.Equal(t, uint64(10), *l.CPUSeconds)
	for _, f := range FlagSpecs {
		if f.Long == "memory" || f.Long == "cpu-time" {
			assert.True(t, f.Present(l), f.Long)
			continue
		}
		assert.False(t, f.Present(l), f.Long)
	}
}

func TestBuildRequiresTarget(t *testing.T) {
	_, err := Build(map[string]string{"memory": "50"}, "  ")
	require.Error(t, err)
	assert.Equal(t, "application", err.(*ConfigurationError).Field)

	l, err := Build(nil, "calc")
	require.NoError(t, err)
	assert.True(t, l.Empty())
}

func TestLookupFlag(t *testing.T) {
	f, ok := LookupFlag("M")
	require.True(t, ok)
	assert.Equal(t, "memory", f.Long)

	f, ok = LookupFlag("m")
	require.True(t, ok)
	assert.Equal(t, "process-memory", f.Long)
	assert.Equal(t, "JOBRUN_PROCESS_MEMORY", f.EnvVar)

	_, ok = LookupFlag("x")
	assert.False(t, ok)
}

func TestFlagTableIsConsistent(t *testing.T) {
	seen := map[string]bool{}
	for _, f := range FlagSpecs {
		assert.False(t, seen[f.Short], "duplicate short flag %s", f.Short)
		assert.False(t, seen[f.Long], "duplicate long flag %s", f.Long)
		seen[f.Short], seen[f.Long] = true, true
		assert.NotNil(t, f.assign, f.Long)
		assert.NotNil(t, f.present, f.Long)
		assert.True(t, strings.HasPrefix(f.EnvVar, "JOBRUN_"), f.Long)
		if f.Kind != YesNo {
			assert.LessOrEqual(t, f.Min, f.Max, f.Long)
		}
	}
}
