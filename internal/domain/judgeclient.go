package domain

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// JudgeClient is the identity record of a remote judge worker
type JudgeClient struct {
	ID           int            `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Key          string         `db:"key" json:"key"`
	AllowedHosts pq.StringArray `db:"allowed_hosts" json:"allowedHosts"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
}

// AllowsHost reports whether host may connect with this identity.
// An empty allow list admits every host.
func (c *JudgeClient) AllowsHost(host string) bool {
	if len(c.AllowedHosts) == 0 {
		return true
	}
	for _, h := range c.AllowedHosts {
		if h == host {
			return true
		}
	}
	return false
}

// JudgeClientInfo is the externally visible view of a judge client.
// Key and AllowedHosts are only filled for privileged callers.
type JudgeClientInfo struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Key          *string         `json:"key"`
	AllowedHosts []string        `json:"allowedHosts"`
	Online       bool            `json:"online"`
	SystemInfo   json.RawMessage `json:"systemInfo"`
}

type JudgeClientTable struct {
	ID           string
	Name         string
	Key          string
	AllowedHosts string
	CreatedAt    string
}

func (JudgeClientTable) TableName() string {
	return "judge_client"
}

func (t JudgeClientTable) Columns() []string {
	return []string{t.ID, t.Name, t.Key, t.AllowedHosts, t.CreatedAt}
}

func GetJudgeClientTable() JudgeClientTable {
	return JudgeClientTable{
		ID:           "id",
		Name:         "name",
		Key:          "key",
		AllowedHosts: "allowed_hosts",
		CreatedAt:    "created_at",
	}
}
