package ibmq

import "github.com/google/uuid"

const (
	// QobjTypeQASM is the only experiment type the platform runs today
	QobjTypeQASM = "QASM"
	// QobjSchemaVersion is the Qobj schema version this client emits
	QobjSchemaVersion = "1.0.0"
)

// Qobj is a quantum object, the payload a backend executes. It follows
// version 1.0.0 of the QASM Qobj schema.
type Qobj struct {
	QobjID        string                 `json:"qobj_id"`
	Type          string                 `json:"type"`
	SchemaVersion string                 `json:"schema_version"`
	Header        map[string]interface{} `json:"header,omitempty"`
	Config        QobjConfig             `json:"config"`
	Experiments   []QobjExperiment       `json:"experiments"`
}

// QobjConfig carries the run configuration shared by all experiments
type QobjConfig struct {
	Shots       int   `json:"shots,omitempty"`
	MemorySlots int   `json:"memory_slots,omitempty"`
	MaxCredits  int   `json:"max_credits,omitempty"`
	Seed        int64 `json:"seed,omitempty"`
	Memory      bool  `json:"memory,omitempty"`
}

// QobjExperiment is a single circuit of a Qobj
type QobjExperiment struct {
	Header       map[string]interface{} `json:"header,omitempty"`
	Config       map[string]interface{} `json:"config,omitempty"`
	Instructions []QobjInstruction      `json:"instructions"`
}

// QobjInstruction is one operation applied to specific qubits
type QobjInstruction struct {
	Name   string    `json:"name"`
	Qubits []int     `json:"qubits,omitempty"`
	Memory []int     `json:"memory,omitempty"`
	Params []float64 `json:"params,omitempty"`
}

// NewQobj assembles a runnable Qobj around the given experiments. The id
// defaults to a fresh UUID, shots and max credits to the client defaults,
// and memory_slots grows to fit the widest measurement.
func NewQobj(experiments ...QobjExperiment) *Qobj {
	q := &Qobj{
		QobjID:        uuid.NewString(),
		Type:          QobjTypeQASM,
		SchemaVersion: QobjSchemaVersion,
		Config: QobjConfig{
			Shots:      DefaultShots,
			MaxCredits: DefaultMaxCredits,
		},
		Experiments: experiments,
	}

	for _, exp := range experiments {
		for _, inst := range exp.Instructions {
			for _, slot := range inst.Memory {
				if slot+1 > q.Config.MemorySlots {
					q.Config.MemorySlots = slot + 1
				}
			}
		}
	}
	return q
}
