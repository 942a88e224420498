package ensemble

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/ensemble/ranking"
)

const snapshotYAML = `
members: 3
data:
  - node: FOPT
    step: 10
    values: [300.5, 120.0, ~]
  - node: FOPT
    step: 20
    values: [400, 500, 600]
  - node: PORO
    key: PORO:1,1,1
    index: "1"
    step: 0
    values: [0.2, 0.25, 0.3]
misfits:
  WOPR_OP1:
    - {0: 1.5, 1: 0.5}
    - {0: 4.0}
    - {0: 0.25, 1: 0.25}
  WWCT_OP1:
    - {0: 2.0}
    - {}
    - {0: 1.0, 1: 1.0}
`

func writeSnapshot(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad(t *testing.T) {
	s, err := Load(writeSnapshot(t, snapshotYAML))
	require.NoError(t, err)

	assert.Equal(t, 3, s.EnsembleSize())
	assert.Len(t, s.Data, 3)
	assert.Equal(t, []string{"WOPR_OP1", "WWCT_OP1"}, s.ObsKeys())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no members", body: "members: 0"},
		{name: "short series", body: "members: 2\ndata:\n  - {node: FOPT, step: 0, values: [1]}"},
		{name: "missing node", body: "members: 1\ndata:\n  - {step: 0, values: [1]}"},
		{name: "short misfits", body: "members: 2\nmisfits:\n  OBS:\n    - {0: 1}"},
		{name: "not yaml", body: "members: [1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeSnapshot(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("ENSEMBLE_TEST_MEMBERS", "2")
	s, err := Load(writeSnapshot(t, "members: ${ENSEMBLE_TEST_MEMBERS:-5}"))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Members)
}

func TestSnapshot_LoadValue(t *testing.T) {
	s, err := Load(writeSnapshot(t, snapshotYAML))
	require.NoError(t, err)

	tests := []struct {
		name    string
		node    string
		userKey string
		index   string
		member  int
		step    int
		want    float64
		wantErr bool
	}{
		{name: "default user key", node: "FOPT", member: 0, step: 10, want: 300.5},
		{name: "explicit user key", node: "FOPT", userKey: "FOPT", member: 1, step: 20, want: 500},
		{name: "keyed series", node: "PORO", userKey: "PORO:1,1,1", index: "1", member: 2, want: 0.3},
		{name: "null value", node: "FOPT", member: 2, step: 10, wantErr: true},
		{name: "unknown step", node: "FOPT", member: 0, step: 30, wantErr: true},
		{name: "wrong index", node: "PORO", userKey: "PORO:1,1,1", index: "2", member: 0, wantErr: true},
		{name: "member out of range", node: "FOPT", member: 3, step: 10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.LoadValue(s.Node(tt.node), tt.userKey, tt.index, tt.member, tt.step)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrNoData))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSnapshot_Misfit(t *testing.T) {
	s, err := Load(writeSnapshot(t, snapshotYAML))
	require.NoError(t, err)

	got, err := s.Misfit(0, "WOPR_OP1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)

	got, err = s.Misfit(0, "WOPR_OP1", []int{1})
	require.NoError(t, err)
	assert.Equal(t, 0.5, got)

	_, err = s.Misfit(1, "WOPR_OP1", []int{0, 1})
	assert.ErrorIs(t, err, ErrNoData)

	_, err = s.Misfit(1, "WWCT_OP1", nil)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = s.Misfit(0, "UNKNOWN", nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSnapshot_FeedsRankings(t *testing.T) {
	s, err := Load(writeSnapshot(t, snapshotYAML))
	require.NoError(t, err)

	reg, err := ranking.NewRegistry(s.EnsembleSize())
	require.NoError(t, err)

	require.NoError(t, reg.AddDataRanking("fopt", true, "FOPT", "", s, s.Node("FOPT"), 10))
	perm, err := reg.Permutation("fopt")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 2}, perm)

	require.NoError(t, reg.AddMisfitRanking("misfit", s, s.ObsKeys(), nil))
	perm, err = reg.Permutation("misfit")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 1}, perm)
}
