package wire

import "encoding/json"

// Event binds a control-plane operation to its wire shape: HTTP method,
// path, request body, and the Go type its success response decodes into.
// The codec has no freedom to assemble a request outside what an Event
// describes.
type Event interface {
	Method() string
	Path() string
	Body() ([]byte, error)
	DecodeSuccess(body []byte) (any, error)
}

// jsonEvent is embedded by every concrete event below; it implements
// Body/DecodeSuccess generically over the request/response payload types.
type jsonEvent[Req any, Resp any] struct {
	method string
	path   string
	req    *Req
}

func (e jsonEvent[Req, Resp]) Method() string { return e.method }
func (e jsonEvent[Req, Resp]) Path() string    { return e.path }

func (e jsonEvent[Req, Resp]) Body() ([]byte, error) {
	if e.req == nil {
		return nil, nil
	}
	return json.Marshal(e.req)
}

func (e jsonEvent[Req, Resp]) DecodeSuccess(body []byte) (any, error) {
	var resp Resp
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Empty is the success schema for endpoints that return no payload.
type Empty struct{}

// --- GET endpoints ---

type InstanceInfo struct {
	ID              string `json:"id"`
	State           string `json:"state"`
	VMMVersion      string `json:"vmm_version"`
	AppName         string `json:"app_name,omitempty"`
}

func GetInstanceInfo() Event { return jsonEvent[struct{}, InstanceInfo]{method: "GET", path: "/"} }

type VersionInfo struct {
	FirecrackerVersion string `json:"firecracker_version"`
}

func GetVersion() Event { return jsonEvent[struct{}, VersionInfo]{method: "GET", path: "/version"} }

func GetVMConfig() Event {
	return jsonEvent[struct{}, FullVMConfiguration]{method: "GET", path: "/vm/config"}
}

func GetMachineConfig() Event {
	return jsonEvent[struct{}, MachineConfiguration]{method: "GET", path: "/machine-config"}
}

func GetBalloon() Event { return jsonEvent[struct{}, Balloon]{method: "GET", path: "/balloon"} }

func GetBalloonStats() Event {
	return jsonEvent[struct{}, BalloonStats]{method: "GET", path: "/balloon/statistics"}
}

func GetMMDS() Event { return jsonEvent[struct{}, map[string]any]{method: "GET", path: "/mmds"} }

// --- PUT endpoints (idempotent resource creation) ---

func PutLogger(l Logger) Event {
	return jsonEvent[Logger, Empty]{method: "PUT", path: "/logger", req: &l}
}

func PutMetrics(m Metrics) Event {
	return jsonEvent[Metrics, Empty]{method: "PUT", path: "/metrics", req: &m}
}

func PutBootSource(b BootSource) Event {
	return jsonEvent[BootSource, Empty]{method: "PUT", path: "/boot-source", req: &b}
}

func PutDrive(d Drive) Event {
	return jsonEvent[Drive, Empty]{method: "PUT", path: "/drives/" + d.DriveID, req: &d}
}

func PutNetworkInterface(n NetworkInterface) Event {
	return jsonEvent[NetworkInterface, Empty]{method: "PUT", path: "/network-interfaces/" + n.IfaceID, req: &n}
}

func PutVsock(v VsockDevice) Event {
	return jsonEvent[VsockDevice, Empty]{method: "PUT", path: "/vsock", req: &v}
}

func PutCPUConfig(c CPUConfig) Event {
	return jsonEvent[CPUConfig, Empty]{method: "PUT", path: "/cpu-config", req: &c}
}

func PutMachineConfig(m MachineConfiguration) Event {
	return jsonEvent[MachineConfiguration, Empty]{method: "PUT", path: "/machine-config", req: &m}
}

func PutBalloon(b Balloon) Event {
	return jsonEvent[Balloon, Empty]{method: "PUT", path: "/balloon", req: &b}
}

func PutEntropyDevice(e EntropyDevice) Event {
	return jsonEvent[EntropyDevice, Empty]{method: "PUT", path: "/entropy", req: &e}
}

func PutMMDS(metadata json.RawMessage) Event {
	return jsonEvent[json.RawMessage, Empty]{method: "PUT", path: "/mmds", req: &metadata}
}

func PutMMDSConfig(c MMDSConfig) Event {
	return jsonEvent[MMDSConfig, Empty]{method: "PUT", path: "/mmds/config", req: &c}
}

func PutSnapshotCreate(s SnapshotCreateParams) Event {
	return jsonEvent[SnapshotCreateParams, Empty]{method: "PUT", path: "/snapshot/create", req: &s}
}

func PutSnapshotLoad(s SnapshotLoadParams) Event {
	return jsonEvent[SnapshotLoadParams, Empty]{method: "PUT", path: "/snapshot/load", req: &s}
}

type ActionInfo struct {
	ActionType string `json:"action_type"`
}

func PutAction(actionType string) Event {
	return jsonEvent[ActionInfo, Empty]{method: "PUT", path: "/actions", req: &ActionInfo{ActionType: actionType}}
}

// --- PATCH endpoints (partial update) ---

func PatchVM(state string) Event {
	type vmState struct {
		State string `json:"state"`
	}
	return jsonEvent[vmState, Empty]{method: "PATCH", path: "/vm", req: &vmState{State: state}}
}

func PatchBalloon(b PartialBalloon) Event {
	return jsonEvent[PartialBalloon, Empty]{method: "PATCH", path: "/balloon", req: &b}
}

func PatchBalloonStatsInterval(statsPollingIntervalS int) Event {
	type interval struct {
		StatsPollingIntervalS int `json:"stats_polling_interval_s"`
	}
	return jsonEvent[interval, Empty]{
		method: "PATCH", path: "/balloon/statistics",
		req: &interval{StatsPollingIntervalS: statsPollingIntervalS},
	}
}

func PatchDrive(d PartialDrive) Event {
	return jsonEvent[PartialDrive, Empty]{method: "PATCH", path: "/drives/" + d.DriveID, req: &d}
}

func PatchNetworkInterface(n PartialNetworkInterface) Event {
	return jsonEvent[PartialNetworkInterface, Empty]{
		method: "PATCH", path: "/network-interfaces/" + n.IfaceID, req: &n,
	}
}

func PatchMachineConfig(m MachineConfiguration) Event {
	return jsonEvent[MachineConfiguration, Empty]{method: "PATCH", path: "/machine-config", req: &m}
}

func PatchMMDS(metadata json.RawMessage) Event {
	return jsonEvent[json.RawMessage, Empty]{method: "PATCH", path: "/mmds", req: &metadata}
}
