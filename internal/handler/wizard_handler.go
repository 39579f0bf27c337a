package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"tourdesk/internal/middleware"
	"tourdesk/internal/wizard"
	"tourdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

// StepResult is the body of a passing step check
type StepResult struct {
	OK       bool `json:"ok"`
	NextStep int  `json:"next_step"`
	Done     bool `json:"done"`
}

// FlowInfo describes a wizard to the client
type FlowInfo struct {
	Name  string   `json:"name"`
	Steps []string `json:"steps"`
}

type WizardHandler struct {
	flows wizard.Registry
}

func NewWizardHandler(flows wizard.Registry) *WizardHandler {
	return &WizardHandler{flows: flows}
}

// RegisterRoutes leaves the step checks public; registration runs them before any account exists.
func (h *WizardHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/wizards", middleware.IPRateLimit(10, 30))
	{
		group.GET("/:flow", h.Describe)
		group.POST("/:flow/steps/:step", h.ValidateStep)
	}
}

// Describe lists the steps of a flow
// @Summary      Describe wizard
// @Tags         wizards
// @Produce      json
// @Param        flow  path      string  true  "user, visitor, facility, case, contract, compliance or reservation"
// @Success      200   {object}  response.Response{data=FlowInfo}
// @Failure      404   {object}  response.Response
// @Router       /api/wizards/{flow} [get]
func (h *WizardHandler) Describe(c *gin.Context) {
	flow, ok := h.flows[c.Param("flow")]
	if !ok {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Unknown wizard"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, FlowInfo{Name: flow.Name(), Steps: flow.StepNames()}))
}

// ValidateStep checks one step of a wizard form
// @Summary      Validate wizard step
// @Description  Runs the rules of a single step. The first failing rule is returned as {error} with 422.
// @Tags         wizards
// @Accept       json
// @Produce      json
// @Param        flow     path      string  true  "Wizard name"
// @Param        step     path      int     true  "1-based step number"
// @Param        payload  body      object  true  "Form state so far"
// @Success      200      {object}  StepResult
// @Failure      404      {object}  response.Problem
// @Failure      422      {object}  response.Problem
// @Router       /api/wizards/{flow}/steps/{step} [post]
func (h *WizardHandler) ValidateStep(c *gin.Context) {
	flow, ok := h.flows[c.Param("flow")]
	if !ok {
		c.JSON(http.StatusNotFound, response.Problem{Error: "Unknown wizard"})
		return
	}
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil || step < 1 || step > flow.Len() {
		c.JSON(http.StatusNotFound, response.Problem{Error: "Unknown step"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Problem{Error: "Invalid form payload"})
		return
	}

	if err := flow.ValidateRaw(step, body); err != nil {
		var stepErr *wizard.StepError
		if errors.As(err, &stepErr) {
			c.JSON(http.StatusUnprocessableEntity, response.Problem{Error: stepErr.Message})
			return
		}
		c.JSON(http.StatusBadRequest, response.Problem{Error: err.Error()})
		return
	}

	next := step + 1
	done := next > flow.Len()
	if done {
		next = flow.Len()
	}
	c.JSON(http.StatusOK, StepResult{OK: true, NextStep: next, Done: done})
}
