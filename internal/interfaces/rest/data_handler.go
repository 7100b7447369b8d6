package rest

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/kkkppp/p2proto/internal/application/services"
	"github.com/kkkppp/p2proto/pkg/constants"
	"github.com/kkkppp/p2proto/pkg/errors"
	"github.com/kkkppp/p2proto/pkg/expression"
	"github.com/kkkppp/p2proto/pkg/query"
)

type DataHandler struct {
	svc *services.ServiceManager
}

func NewDataHandler(svc *services.ServiceManager) *DataHandler {
	return &DataHandler{svc: svc}
}

// QueryRequest is the body of POST /api/data/:table/query. Criterion is a
// criterion tree in its JSON form; Where is a filter expression such as
// `age >= 18 && name != nil`. When both are given they are combined with AND.
type QueryRequest struct {
	Criterion json.RawMessage `json:"criterion"`
	Where     string          `json:"where"`
}

// GetRecords handles GET /api/data/:table
//
// Supported query parameters, combined with AND:
//   - filter: criterion JSON
//   - where: filter expression
//   - q: simple terms like "age > 18", repeatable
func (h *DataHandler) GetRecords(c *gin.Context) {
	tableName := c.Param("table")

	HandleGetEnvelope(c, "records", func() (interface{}, error) {
		var parts []query.Criterion
		if raw := c.Query(constants.ParamFilter); raw != "" {
			criterion, err := parseCriterion(constants.ParamFilter, []byte(raw))
			if err != nil {
				return nil, err
			}
			parts = append(parts, criterion)
		}
		if where := c.Query(constants.ParamWhere); where != "" {
			criterion, err := expression.ToCriterion(where)
			if err != nil {
				return nil, errors.NewValidationError(constants.ParamWhere, err.Error())
			}
			parts = append(parts, criterion)
		}
		if terms := c.QueryArray(constants.ParamTerm); len(terms) > 0 {
			criterion, bad, ok := query.ParseFilterTerms(terms)
			if !ok {
				return nil, errors.NewValidationError(constants.ParamTerm, "invalid filter term '"+bad+"'")
			}
			if criterion != nil {
				parts = append(parts, criterion)
			}
		}
		return h.svc.Records.List(c.Request.Context(), tableName, combine(parts))
	})
}

// QueryRecords handles POST /api/data/:table/query
func (h *DataHandler) QueryRecords(c *gin.Context) {
	tableName := c.Param("table")
	var req QueryRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleGetEnvelope(c, "records", func() (interface{}, error) {
		var parts []query.Criterion
		if len(req.Criterion) > 0 && string(req.Criterion) != "null" {
			criterion, err := parseCriterion("criterion", req.Criterion)
			if err != nil {
				return nil, err
			}
			parts = append(parts, criterion)
		}
		if req.Where != "" {
			criterion, err := expression.ToCriterion(req.Where)
			if err != nil {
				return nil, errors.NewValidationError("where", err.Error())
			}
			parts = append(parts, criterion)
		}
		return h.svc.Records.List(c.Request.Context(), tableName, combine(parts))
	})
}

// GetRecord handles GET /api/data/:table/:id
func (h *DataHandler) GetRecord(c *gin.Context) {
	HandleGetEnvelope(c, "record", func() (interface{}, error) {
		return h.svc.Records.Get(c.Request.Context(), c.Param("table"), c.Param("id"))
	})
}

// CreateRecord handles POST /api/data/:table
func (h *DataHandler) CreateRecord(c *gin.Context) {
	tableName := c.Param("table")
	values := make(map[string]interface{})

	HandleCreateEnvelope(c, "id", "Record created successfully", &values, func() (interface{}, error) {
		return h.svc.Records.Create(c.Request.Context(), tableName, values, currentUserID(c))
	})
}

// UpdateRecord handles PUT /api/data/:table/:id
func (h *DataHandler) UpdateRecord(c *gin.Context) {
	tableName := c.Param("table")
	id := c.Param("id")
	values := make(map[string]interface{})

	HandleUpdateEnvelope(c, "Record updated successfully", &values, func() error {
		return h.svc.Records.Update(c.Request.Context(), tableName, id, values, currentUserID(c))
	})
}

// DeleteRecord handles DELETE /api/data/:table/:id
func (h *DataHandler) DeleteRecord(c *gin.Context) {
	tableName := c.Param("table")
	id := c.Param("id")

	HandleDeleteEnvelope(c, "Record deleted successfully", func() error {
		return h.svc.Records.Delete(c.Request.Context(), tableName, id, currentUserID(c))
	})
}

// parseCriterion decodes criterion JSON from a client. Raw SQL fragments are
// for server code only.
func parseCriterion(field string, data []byte) (query.Criterion, error) {
	criterion, err := query.ParseCriterion(data)
	if err != nil {
		return nil, errors.NewValidationError(field, err.Error())
	}
	if containsRaw(criterion) {
		return nil, errors.NewValidationError(field, "raw SQL criteria are not accepted")
	}
	return criterion, nil
}

func containsRaw(c query.Criterion) bool {
	switch v := c.(type) {
	case query.Raw:
		return true
	case query.Group:
		for _, item := range v.Items {
			if containsRaw(item) {
				return true
			}
		}
	}
	return false
}

func combine(parts []query.Criterion) query.Criterion {
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	default:
		return query.AllOf(parts...)
	}
}
