package judgeclients

// AddJudgeClientRequest represents a request to register a judge client
type AddJudgeClientRequest struct {
	Name         string   `json:"name"`
	AllowedHosts []string `json:"allowedHosts"`
}
