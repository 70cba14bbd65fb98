package health

const (
	statusOK   = "ok"
	statusDown = "down"
)

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}
