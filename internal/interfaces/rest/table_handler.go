package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kkkppp/p2proto/internal/application/services"
	"github.com/kkkppp/p2proto/internal/domain"
	"github.com/kkkppp/p2proto/internal/domain/schema"
	"github.com/kkkppp/p2proto/pkg/constants"
	"github.com/kkkppp/p2proto/pkg/errors"
	"github.com/kkkppp/p2proto/pkg/utils"
)

type TableHandler struct {
	svc *services.ServiceManager
}

func NewTableHandler(svc *services.ServiceManager) *TableHandler {
	return &TableHandler{svc: svc}
}

// CreateTableRequest is the body of POST /api/tables. Without columns the
// table gets the default id and timestamp columns.
type CreateTableRequest struct {
	Name        string                  `json:"name" binding:"required"`
	Label       string                  `json:"label"`
	PluralLabel string                  `json:"pluralLabel"`
	Type        schema.TableType        `json:"type"`
	PrimaryKey  string                  `json:"primaryKey"`
	Columns     []schema.ColumnMetadata `json:"columns"`
}

// UpdateLabelsRequest is the body of PUT /api/tables/:id/labels
type UpdateLabelsRequest struct {
	Label       string `json:"label" binding:"required"`
	PluralLabel string `json:"pluralLabel"`
}

// GetTables handles GET /api/tables
func (h *TableHandler) GetTables(c *gin.Context) {
	HandleGetEnvelope(c, "tables", func() (interface{}, error) {
		return h.svc.Tables.ListTables(c.Request.Context())
	})
}

// GetTable handles GET /api/tables/:id
func (h *TableHandler) GetTable(c *gin.Context) {
	HandleGetEnvelope(c, "table", func() (interface{}, error) {
		id, err := tableID(c)
		if err != nil {
			return nil, err
		}
		return h.svc.Tables.GetTable(c.Request.Context(), id)
	})
}

// CreateTable handles POST /api/tables. A failed DDL still answers with the
// component id so the INACTIVE component can be inspected.
func (h *TableHandler) CreateTable(c *gin.Context) {
	var req CreateTableRequest
	if !BindJSON(c, &req) {
		return
	}
	if req.Type == "" {
		req.Type = schema.TableStandard
	}
	columns := req.Columns
	if len(columns) == 0 {
		columns = services.DefaultColumns()
	}

	table, err := schema.NewTable(schema.TableSpec{
		Name:        req.Name,
		Label:       req.Label,
		PluralLabel: req.PluralLabel,
		Type:        req.Type,
		PrimaryKey:  req.PrimaryKey,
		Columns:     columns,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}

	result, err := h.svc.Tables.CreateTable(c.Request.Context(), table, currentUserID(c))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	if result.Status != domain.HistoryCompleted {
		c.JSON(http.StatusInternalServerError, gin.H{
			constants.ResponseError: operationFailed,
			constants.FieldMessage:  operationFailed,
			constants.FieldCode:     errors.GetErrorCode(result.Err),
			constants.ResponseData: gin.H{
				"componentId": result.ComponentID,
				"status":      result.Status,
			},
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		constants.FieldMessage: "Table created successfully",
		"result":               result,
	})
}

// UpdateLabels handles PUT /api/tables/:id/labels
func (h *TableHandler) UpdateLabels(c *gin.Context) {
	var req UpdateLabelsRequest
	if !BindJSON(c, &req) {
		return
	}
	HandleGetEnvelope(c, "table", func() (interface{}, error) {
		id, err := tableID(c)
		if err != nil {
			return nil, err
		}
		return h.svc.Tables.UpdateLabels(c.Request.Context(), id, req.Label, req.PluralLabel, currentUserID(c))
	})
}

func tableID(c *gin.Context) (uuid.UUID, error) {
	raw := c.Param("id")
	if !utils.IsValidUUID(raw) {
		return uuid.Nil, errors.NewValidationError("id", "Invalid ID format")
	}
	return uuid.Parse(raw)
}
