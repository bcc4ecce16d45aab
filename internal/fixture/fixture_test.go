package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/restructure/restructure/internal/cfgview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const whileFixtureYAML = `
enter: 0
blocks:
  - id: 0
    instructions: []
  - id: 1
    flags: [LOOP_START]
    instructions:
      - type: IF
  - id: 2
    instructions: []
  - id: 3
    instructions:
      - type: RETURN
edges:
  - {from: 0, to: 1}
  - {from: 1, to: 2}
  - {from: 2, to: 1, synthetic: true}
  - {from: 1, to: 3}
loops:
  - start: 1
    end: 2
    members: [1, 2]
    exits:
      - {from: 1, to: 3}
`

func TestLoadAndBuildRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "while.cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(whileFixtureYAML), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Enter)
	assert.Len(t, f.Blocks, 4)

	c, err := Build(f)
	require.NoError(t, err)
	assert.Equal(t, cfgview.BlockID(0), c.GetEnterBlock())
	assert.Len(t, c.GetBasicBlocks(), 4)

	loop := c.GetLoopForBlock(cfgview.BlockID(1))
	require.NotNil(t, loop)
	assert.Equal(t, cfgview.BlockID(2), loop.End)
}

func TestBuildRejectsEmptyFixture(t *testing.T) {
	_, err := Build(&Fixture{Enter: 0})
	assert.Error(t, err)
}

func TestBuildRejectsOutOfRangeEnter(t *testing.T) {
	f := &Fixture{
		Enter: 5,
		Blocks: []BlockFixture{
			{ID: 0, Instructions: []InsnFixture{{Type: "RETURN"}}},
		},
	}
	_, err := Build(f)
	assert.Error(t, err)
}

func TestBuildRejectsSparseBlockIDs(t *testing.T) {
	f := &Fixture{
		Enter: 0,
		Blocks: []BlockFixture{
			{ID: 0, Instructions: []InsnFixture{{Type: "RETURN"}}},
			{ID: 2, Instructions: []InsnFixture{{Type: "RETURN"}}},
		},
	}
	_, err := Build(f)
	assert.Error(t, err)
}

func TestBuildRejectsUnknownInsnType(t *testing.T) {
	f := &Fixture{
		Enter: 0,
		Blocks: []BlockFixture{
			{ID: 0, Instructions: []InsnFixture{{Type: "NOT_A_REAL_TYPE"}}},
		},
	}
	_, err := Build(f)
	assert.Error(t, err)
}
