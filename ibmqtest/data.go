package ibmqtest

// Device mirrors the v1 device configuration document the platform serves
type Device struct {
	Name            string      `json:"backend_name"`
	Version         string      `json:"backend_version"`
	NQubits         int         `json:"n_qubits"`
	Simulator       bool        `json:"simulator"`
	Local           bool        `json:"local"`
	Conditional     bool        `json:"conditional"`
	OpenPulse       bool        `json:"open_pulse"`
	Memory          bool        `json:"memory"`
	MaxShots        int         `json:"max_shots"`
	BasisGates      []string    `json:"basis_gates"`
	CouplingMap     interface{} `json:"coupling_map"`
	Description     string      `json:"description,omitempty"`
	OnlineDate      string      `json:"online_date,omitempty"`
	AllowQObject    bool        `json:"allow_q_object"`
	CreditsRequired bool        `json:"credits_required"`
}

// QueueInfo is the public queue status of a device
type QueueInfo struct {
	State       bool   `json:"state"`
	Status      string `json:"status"`
	Busy        bool   `json:"busy"`
	LengthQueue int    `json:"lengthQueue"`
	Version     string `json:"version"`
}

// CreditInfo is the credit block of a user document
type CreditInfo struct {
	MaxUserType float64 `json:"maxUserType"`
	Promotional float64 `json:"promotional"`
	Remaining   float64 `json:"remaining"`
}

// DefaultDevices returns the device table the server is seeded with
func DefaultDevices() []Device {
	return []Device{
		{
			Name:         "ibmq_qasm_simulator",
			Version:      "0.1.547",
			NQubits:      32,
			Simulator:    true,
			Memory:       true,
			MaxShots:     8192,
			BasisGates:   []string{"u1", "u2", "u3", "cx", "id", "snapshot"},
			Description:  "A general purpose simulator",
			OnlineDate:   "2017-07-03T00:00:00Z",
			AllowQObject: true,
		},
		{
			Name:            "ibmqx4",
			Version:         "1.0.0",
			NQubits:         5,
			MaxShots:        8192,
			Memory:          true,
			BasisGates:      []string{"u1", "u2", "u3", "cx", "id"},
			CouplingMap:     [][]int{{1, 0}, {2, 0}, {2, 1}, {3, 2}, {3, 4}, {4, 2}},
			Description:     "5 qubit device",
			OnlineDate:      "2017-09-18T00:00:00Z",
			AllowQObject:    true,
			CreditsRequired: true,
		},
		{
			Name:     "ibmq_20_tokyo",
			Version:  "1.0.0",
			NQubits:  20,
			MaxShots: 8192,
			Memory:   true,
			BasisGates: []string{
				"u1", "u2", "u3", "cx", "id",
			},
			CouplingMap: [][]int{
				{0, 1}, {1, 2}, {2, 3}, {3, 4}, {5, 6}, {6, 7}, {7, 8}, {8, 9},
				{0, 5}, {1, 6}, {2, 7}, {3, 8}, {4, 9},
			},
			Description:     "20 qubit device",
			OnlineDate:      "2018-04-23T00:00:00Z",
			AllowQObject:    true,
			CreditsRequired: true,
		},
	}
}

func defaultQueues(devices []Device) map[string]*QueueInfo {
	queues := make(map[string]*QueueInfo, len(devices))
	for _, d := range devices {
		q := &QueueInfo{
			State:   true,
			Status:  "active",
			Version: d.Version,
		}
		if !d.Simulator {
			q.LengthQueue = 4
		}
		queues[d.Name] = q
	}
	return queues
}

// propertiesDoc builds a plausible properties document for a device
func propertiesDoc(d Device) map[string]interface{} {
	if d.Simulator {
		return map[string]interface{}{}
	}

	nduv := func(name, unit string, value float64) map[string]interface{} {
		return map[string]interface{}{
			"date":  "2018-08-30T10:45:03Z",
			"name":  name,
			"unit":  unit,
			"value": value,
		}
	}

	qubits := make([][]map[string]interface{}, d.NQubits)
	for i := range qubits {
		qubits[i] = []map[string]interface{}{
			nduv("T1", "us", 52.5),
			nduv("T2", "us", 41.3),
			nduv("frequency", "GHz", 5.24),
			nduv("readout_error", "", 0.033),
		}
	}

	gates := []map[string]interface{}{
		{
			"gate":       "u1",
			"qubits":     []int{0},
			"parameters": []map[string]interface{}{nduv("gate_error", "", 0.0008)},
		},
		{
			"gate":       "cx",
			"qubits":     []int{0, 1},
			"parameters": []map[string]interface{}{nduv("gate_error", "", 0.021)},
		},
	}

	return map[string]interface{}{
		"backend_name":     d.Name,
		"backend_version":  d.Version,
		"last_update_date": "2018-08-30T10:45:03Z",
		"qubits":           qubits,
		"gates":            gates,
		"general":          []interface{}{},
	}
}

// calibrationDoc builds a legacy calibration document for a device
func calibrationDoc(d Device) map[string]interface{} {
	return map[string]interface{}{
		"backend":        d.Name,
		"lastUpdateDate": "2018-08-30T10:45:03Z",
		"multiQubitGates": []map[string]interface{}{
			{
				"name":      "CX0_1",
				"type":      "CX",
				"qubits":    []int{0, 1},
				"gateError": map[string]interface{}{"date": "2018-08-30T10:45:03Z", "value": 0.021},
			},
		},
		"qubits": []map[string]interface{}{
			{
				"name":         "Q0",
				"readoutError": map[string]interface{}{"date": "2018-08-30T10:45:03Z", "value": 0.033},
				"gateError":    map[string]interface{}{"date": "2018-08-30T10:45:03Z", "value": 0.0008},
			},
		},
	}
}

// parametersDoc builds a legacy calibration parameters document for a device
func parametersDoc(d Device) map[string]interface{} {
	measure := func(value float64, unit string) map[string]interface{} {
		return map[string]interface{}{
			"date":  "2018-08-30T10:45:03Z",
			"value": value,
			"unit":  unit,
		}
	}

	return map[string]interface{}{
		"backend": d.Name,
		"fridgeParameters": map[string]interface{}{
			"cooldownDate": "2018-07-10",
			"Temperature":  measure(0.0146, "K"),
		},
		"qubits": []map[string]interface{}{
			{
				"name":      "Q0",
				"gateTime":  measure(60, "ns"),
				"frequency": measure(5.24, "GHz"),
				"T1":        measure(52.5, "us"),
				"T2":        measure(41.3, "us"),
				"buffer":    measure(10, "ns"),
			},
		},
	}
}

// completedResult builds the qObjectResult attached to finished jobs
func completedResult(backend, version, qobjID, jobID string) map[string]interface{} {
	return map[string]interface{}{
		"backend_name":    backend,
		"backend_version": version,
		"qobj_id":         qobjID,
		"job_id":          jobID,
		"success":         true,
		"status":          "COMPLETED",
		"results": []map[string]interface{}{
			{
				"shots":   1024,
				"success": true,
				"status":  "DONE",
				"data": map[string]interface{}{
					"counts": map[string]int{"0x0": 521, "0x3": 503},
				},
			},
		},
	}
}

// experimentResult builds the result block of a legacy execution
func experimentResult(seed *float64) map[string]interface{} {
	data := map[string]interface{}{
		"p": map[string]interface{}{
			"qubits": []int{0, 1},
			"labels": []string{"00", "11"},
			"values": []float64{0.512, 0.488},
		},
		"qasm":        "...",
		"time":        0.0183,
		"creg_labels": "c[2]",
	}
	if seed != nil {
		data["additionalData"] = map[string]interface{}{"seed": *seed}
	}
	return map[string]interface{}{
		"date": "2018-08-30T10:45:03Z",
		"data": data,
	}
}
