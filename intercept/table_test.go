package intercept

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/olcf/wraprun/comm"
)

func TestHandlePositions(t *testing.T) {
	t.Run("known layouts", func(t *testing.T) {
		cases := map[comm.Op][]int{
			comm.OpSend:            {3},
			comm.OpRecv:            {2},
			comm.OpSendrecv:        {5},
			comm.OpBarrier:         {0},
			comm.OpBcast:           {2},
			comm.OpAllreduce:       {2},
			comm.OpReduce:          {3},
			comm.OpCommRank:        {0},
			comm.OpCommCompare:     {0, 1},
			comm.OpCommSplit:       {0},
			comm.OpCommFree:        {0},
			comm.OpAbort:           {0},
			comm.OpIntercommCreate: {0, 2},
			comm.OpCommConnect:     {3},
			comm.OpCommSpawn:       {5},
			comm.OpWinCreate:       {4},
			comm.OpCartCreate:      {0},
		}
		for op, want := range cases {
			got, ok := HandlePositions(op)
			require.True(t, ok, "%s missing from table", op)
			require.Equal(t, want, got, "%s", op)
		}
	})

	t.Run("unknown op", func(t *testing.T) {
		_, ok := HandlePositions(comm.Op("MPI_Imaginary"))
		require.False(t, ok)
	})

	t.Run("every entry names at least one handle", func(t *testing.T) {
		for _, op := range Ops() {
			positions, ok := HandlePositions(op)
			require.True(t, ok)
			require.NotEmpty(t, positions, "%s", op)
			for _, pos := range positions {
				require.GreaterOrEqual(t, pos, 0, "%s", op)
			}
		}
	})

	t.Run("covers the full catalog breadth", func(t *testing.T) {
		require.GreaterOrEqual(t, len(Ops()), 120)
	})
}
