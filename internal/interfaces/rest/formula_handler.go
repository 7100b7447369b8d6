package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kkkppp/p2proto/internal/application/services"
	"github.com/kkkppp/p2proto/pkg/constants"
	appErrors "github.com/kkkppp/p2proto/pkg/errors"
)

type FormulaHandler struct {
	svc *services.ServiceManager
}

func NewFormulaHandler(svc *services.ServiceManager) *FormulaHandler {
	return &FormulaHandler{svc: svc}
}

// ValidateRequest represents a formula validation request
type ValidateRequest struct {
	Table   string `json:"table" binding:"required"`
	Formula string `json:"formula"`
}

// PreviewRequest evaluates a formula against a sample record
type PreviewRequest struct {
	Table   string                 `json:"table" binding:"required"`
	Formula string                 `json:"formula"`
	Record  map[string]interface{} `json:"record"`
}

// Validate handles POST /api/formula/validate
func (h *FormulaHandler) Validate(c *gin.Context) {
	var req ValidateRequest
	if !BindJSON(c, &req) {
		return
	}

	check, err := h.svc.Formulas.Validate(c.Request.Context(), req.Table, req.Formula)
	if err != nil {
		if appErrors.IsFormulaValidation(err) {
			// Valid: false is a successful check result, not an HTTP error
			c.JSON(http.StatusOK, gin.H{
				constants.ResponseData: gin.H{
					"valid":                 false,
					constants.ResponseError: err.Error(),
				},
			})
			return
		}
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		constants.ResponseData: gin.H{
			"valid":      true,
			"references": check.References,
			"sql":        check.SQL,
		},
	})
}

// Preview handles POST /api/formula/preview
func (h *FormulaHandler) Preview(c *gin.Context) {
	var req PreviewRequest
	if !BindJSON(c, &req) {
		return
	}

	result, err := h.svc.Formulas.Preview(c.Request.Context(), req.Table, req.Formula, req.Record)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		constants.ResponseData: gin.H{
			"result":  result,
			"formula": req.Formula,
		},
	})
}

// GetFunctions handles GET /api/formula/functions
func (h *FormulaHandler) GetFunctions(c *gin.Context) {
	functions := h.svc.Formulas.Functions()

	c.JSON(http.StatusOK, gin.H{
		constants.ResponseData: gin.H{
			"functions": functions,
			"count":     len(functions),
		},
	})
}
