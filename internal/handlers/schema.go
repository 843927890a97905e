package handlers

import (
	"encoding/json"
	"net/http"

	"askdata-ai/internal/contextutil"
	"askdata-ai/internal/schema"
)

// SchemaHandler serves the indexed database schema.
type SchemaHandler struct {
	index *schema.Index
}

// NewSchemaHandler creates a new SchemaHandler.
func NewSchemaHandler(index *schema.Index) *SchemaHandler {
	return &SchemaHandler{index: index}
}

// SchemaColumn describes one column in the schema response.
type SchemaColumn struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	PrimaryKey bool   `json:"primary_key,omitempty"`
}

// SchemaTable describes one table in the schema response.
type SchemaTable struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Columns     []SchemaColumn `json:"columns"`
}

// SchemaResponse lists every indexed table in stable name order.
type SchemaResponse struct {
	Tables []SchemaTable `json:"tables"`
}

// ServeHTTP handles HTTP requests for the schema listing.
func (h *SchemaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	fragments := h.index.AllFragments()
	resp := SchemaResponse{Tables: make([]SchemaTable, 0, len(fragments))}
	for _, f := range fragments {
		table := SchemaTable{
			Name:        f.Table,
			Description: f.Description,
			Columns:     make([]SchemaColumn, 0, len(f.Columns)),
		}
		for _, c := range f.Columns {
			table.Columns = append(table.Columns, SchemaColumn{
				Name:       c.Name,
				Type:       c.Type,
				PrimaryKey: c.PrimaryKey,
			})
		}
		resp.Tables = append(resp.Tables, table)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode schema response", "error", err)
	}
}
