package ibmq

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewQobj_Defaults(t *testing.T) {
	t.Parallel()

	q := NewQobj()

	_, err := uuid.Parse(q.QobjID)
	require.NoError(t, err)
	require.Equal(t, QobjTypeQASM, q.Type)
	require.Equal(t, QobjSchemaVersion, q.SchemaVersion)
	require.Equal(t, DefaultShots, q.Config.Shots)
	require.Equal(t, DefaultMaxCredits, q.Config.MaxCredits)
	require.Zero(t, q.Config.MemorySlots)
}

func TestNewQobj_MemorySlotsGrowToFit(t *testing.T) {
	t.Parallel()

	q := NewQobj(
		QobjExperiment{Instructions: []QobjInstruction{
			{Name: "measure", Qubits: []int{0}, Memory: []int{0}},
		}},
		QobjExperiment{Instructions: []QobjInstruction{
			{Name: "measure", Qubits: []int{1}, Memory: []int{4}},
		}},
	)

	require.Equal(t, 5, q.Config.MemorySlots)
}
