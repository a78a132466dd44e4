//nolint:tagliatelle // MWS Tables API uses camelCase.
package mws

//go:generate mockgen -package mocks -destination mocks/mock_gateway.go github.com/mwsanalytics/posts-backend/internal/mws Gateway

import (
	"context"
	"encoding/json"
)

// Datasheet addresses one remote table and the credentials used to reach it.
type Datasheet struct {
	ID     string
	ViewID string
	Token  string //nolint:gosec // Credential supplied by configuration.
}

// Record is one row of a datasheet as returned by the API.
type Record struct {
	RecordID  string         `json:"recordId"`
	CreatedAt int64          `json:"createdAt,omitempty"`
	UpdatedAt int64          `json:"updatedAt,omitempty"`
	Fields    map[string]any `json:"fields"`
}

// Gateway is the remote system of record for post tables.
type Gateway interface {
	// ListRecords returns every record visible in the datasheet view.
	ListRecords(ctx context.Context, ds Datasheet) ([]Record, error)
	// CreateRecord inserts one record and returns it as stored.
	CreateRecord(ctx context.Context, ds Datasheet, fields map[string]any) (*Record, error)
	// UpdateRecord patches one record and returns it as stored.
	UpdateRecord(ctx context.Context, ds Datasheet, recordID string, fields map[string]any) (*Record, error)
}

// envelope is the common response wrapper of the MWS Tables API.
type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// recordPage is the data section of list, create and update responses.
type recordPage struct {
	Total    int      `json:"total"`
	PageNum  int      `json:"pageNum"`
	PageSize int      `json:"pageSize"`
	Records  []Record `json:"records"`
}

type writeRecord struct {
	RecordID string         `json:"recordId,omitempty"`
	Fields   map[string]any `json:"fields"`
}

type writeRequest struct {
	Records  []writeRecord `json:"records"`
	FieldKey string        `json:"fieldKey"`
}
