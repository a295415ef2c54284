package testing

// CalibrationJSON is a backend-properties document for a three-qubit line device
// (0 - 1 - 2) with directed CNOTs in both directions.
const CalibrationJSON = `{
  "backend_name": "fake_line3",
  "backend_version": "1.0.4",
  "last_update_date": "2020-10-13T08:17:15+00:00",
  "qubits": [
    [
      {"date": "2020-10-13T07:10:00+00:00", "name": "T1", "unit": "us", "value": 81.2},
      {"date": "2020-10-13T07:11:00+00:00", "name": "T2", "unit": "us", "value": 102.5},
      {"date": "2020-10-13T08:17:15+00:00", "name": "frequency", "unit": "GHz", "value": 4.97},
      {"date": "2020-10-13T08:17:15+00:00", "name": "anharmonicity", "unit": "GHz", "value": -0.33},
      {"date": "2020-10-13T07:00:00+00:00", "name": "readout_error", "unit": "", "value": 0.021}
    ],
    [
      {"date": "2020-10-13T07:10:00+00:00", "name": "T1", "unit": "us", "value": 64.0},
      {"date": "2020-10-13T07:11:00+00:00", "name": "T2", "unit": "us", "value": 71.9},
      {"date": "2020-10-13T08:17:15+00:00", "name": "frequency", "unit": "GHz", "value": 4.77},
      {"date": "2020-10-13T08:17:15+00:00", "name": "anharmonicity", "unit": "GHz", "value": -0.31},
      {"date": "2020-10-13T07:00:00+00:00", "name": "readout_error", "unit": "", "value": 0.034}
    ],
    [
      {"date": "2020-10-13T07:10:00+00:00", "name": "T1", "unit": "ns", "value": 95400},
      {"date": "2020-10-13T07:11:00+00:00", "name": "T2", "unit": "us", "value": 88.1},
      {"date": "2020-10-13T08:17:15+00:00", "name": "frequency", "unit": "MHz", "value": 5015},
      {"date": "2020-10-13T08:17:15+00:00", "name": "anharmonicity", "unit": "GHz", "value": -0.32},
      {"date": "2020-10-13T07:00:00+00:00", "name": "readout_error", "unit": "", "value": 0.018}
    ]
  ],
  "gates": [
    {"qubits": [0], "gate": "id", "name": "id_0", "parameters": [{"name": "gate_error", "unit": "", "value": 0.0004}]},
    {"qubits": [0], "gate": "u2", "name": "u2_0", "parameters": [{"name": "gate_error", "unit": "", "value": 0.0004}, {"name": "gate_length", "unit": "ns", "value": 35.5}]},
    {"qubits": [1], "gate": "u2", "name": "u2_1", "parameters": [{"name": "gate_error", "unit": "", "value": 0.0006}, {"name": "gate_length", "unit": "ns", "value": 35.5}]},
    {"qubits": [2], "gate": "u2", "name": "u2_2", "parameters": [{"name": "gate_error", "unit": "", "value": 0.0003}, {"name": "gate_length", "unit": "ns", "value": 35.5}]},
    {"qubits": [0, 1], "gate": "cx", "name": "cx0_1", "parameters": [{"name": "gate_error", "unit": "", "value": 0.0121}, {"name": "gate_length", "unit": "ns", "value": 440.9}]},
    {"qubits": [1, 0], "gate": "cx", "name": "cx1_0", "parameters": [{"name": "gate_error", "unit": "", "value": 0.0121}, {"name": "gate_length", "unit": "ns", "value": 476.4}]},
    {"qubits": [1, 2], "gate": "cx", "name": "cx1_2", "parameters": [{"name": "gate_error", "unit": "", "value": 0.0098}, {"name": "gate_length", "unit": "ns", "value": 362.7}]},
    {"qubits": [2, 1], "gate": "cx", "name": "cx2_1", "parameters": [{"name": "gate_error", "unit": "", "value": 0.0105}, {"name": "gate_length", "unit": "ns", "value": 398.2}]}
  ],
  "general": []
}`
