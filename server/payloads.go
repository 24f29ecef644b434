package server

import "encoding/json"

// Outbound payload shapes (batsim -> scheduler).

type jobSubmittedPayload struct {
	JobID string `json:"job_id"`
}

type jobCompletedPayload struct {
	JobID      string `json:"job_id"`
	JobState   string `json:"job_state"`
	Alloc      string `json:"alloc,omitempty"`
	ReturnCode int    `json:"return_code"`
}

type killedJobMsg struct {
	ID          string  `json:"id"`
	ForWhat     string  `json:"forWhat,omitempty"`
	JobProgress float64 `json:"job_progress"`
}

type jobKilledPayload struct {
	JobMsgs []killedJobMsg `json:"job_msgs"`
}

type resourceStateChangedPayload struct {
	Resources string `json:"resources"`
	State     string `json:"state"`
}

type requestedCallPayload struct {
	ID      string `json:"id"`
	ForWhat string `json:"forWhat,omitempty"`
}

type notifyPayload struct {
	Type string `json:"type"`
}

type notifyResourcePayload struct {
	Type      string `json:"type"`
	Resources string `json:"resources"`
}

// Inbound payload shapes (scheduler -> batsim).

type rejectJobPayload struct {
	JobID string `json:"job_id"`
	// Reason optionally names one of the job.State REJECTED_* variants
	// (e.g. "REJECTED_NO_WALLTIME"); unset or unrecognized falls back to
	// RejectedNotEnoughResources.
	Reason string `json:"reason,omitempty"`
}

type executeJobPayload struct {
	JobID          string            `json:"job_id"`
	Alloc          string            `json:"alloc"`
	Mapping        map[string]int    `json:"mapping,omitempty"`
	StorageMapping map[string]int    `json:"storage_mapping,omitempty"`
	AdditionalIO   string            `json:"additional_io_job,omitempty"`
}

type callMeLaterPayload struct {
	Timestamp float64 `json:"timestamp"`
	ID        string  `json:"id,omitempty"`
	ForWhat   string  `json:"forWhat,omitempty"`
}

type jobMsg struct {
	ID      string `json:"id"`
	ForWhat string `json:"forWhat,omitempty"`
}

type killJobPayload struct {
	JobMsgs []jobMsg `json:"job_msgs"`
}

type setResourceStatePayload struct {
	Resources string `json:"resources"`
	State     string `json:"state"`
}

type inboundNotifyPayload struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

type registerJobPayload struct {
	JobID string          `json:"job_id"`
	Job   json.RawMessage `json:"job,omitempty"`
}

type registerProfilePayload struct {
	WorkloadName string          `json:"workload_name"`
	ProfileName  string          `json:"profile_name"`
	Profile      json.RawMessage `json:"profile"`
}

func mustMarshal(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic("server: payload marshal: " + err.Error())
	}
	return json.RawMessage(b)
}
