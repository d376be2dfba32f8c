package form

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinforms/clinforms/internal/platform/auth"
	"github.com/clinforms/clinforms/internal/platform/logic"
	"github.com/clinforms/clinforms/pkg/formmodel"
	"github.com/clinforms/clinforms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – anyone who renders or authors forms
	readGroup := api.Group("", auth.RequireRole("admin", "form_designer", "physician", "nurse"))
	readGroup.GET("/forms", h.ListDefinitions)
	readGroup.GET("/forms/:id", h.GetDefinition)
	readGroup.GET("/forms/:id/versions", h.ListVersions)
	readGroup.GET("/form-versions/:id", h.GetVersion)
	readGroup.GET("/form-versions/:id/valid-sources", h.ValidSources)
	readGroup.POST("/form-versions/:id/$resolve", h.ResolveVersion)
	readGroup.POST("/form-versions/:id/$validate", h.ValidateVersion)

	// Authoring endpoints – designers only
	writeGroup := api.Group("", auth.RequireRole("admin", "form_designer"))
	writeGroup.POST("/forms", h.CreateDefinition)
	writeGroup.PUT("/forms/:id", h.UpdateDefinition)
	writeGroup.DELETE("/forms/:id", h.DeleteDefinition)
	writeGroup.POST("/forms/:id/versions", h.CreateVersion)
	writeGroup.PUT("/form-versions/:id/structure", h.SaveStructure)
	writeGroup.POST("/form-versions/:id/$publish", h.PublishVersion)
	writeGroup.POST("/form-versions/:id/$retire", h.RetireVersion)
}

// -- Definition Handlers --

func (h *Handler) CreateDefinition(c echo.Context) error {
	var d Definition
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
		d.CreatedBy = uid
	}
	if err := h.svc.CreateDefinition(c.Request().Context(), &d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDefinition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.GetDefinition(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "form not found")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateDefinition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var d Definition
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d.ID = id
	if err := h.svc.UpdateDefinition(c.Request().Context(), &d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDefinition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteDefinition(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListDefinitions(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDefinitions(c.Request().Context(), c.QueryParam("category"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Version Handlers --

func (h *Handler) CreateVersion(c echo.Context) error {
	definitionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.CreateVersion(c.Request().Context(), definitionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) GetVersion(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.GetVersion(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "form version not found")
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ListVersions(c echo.Context) error {
	definitionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListVersions(c.Request().Context(), definitionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) SaveStructure(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var structure formmodel.Form
	if err := c.Bind(&structure); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	diags, err := h.svc.SaveStructure(c.Request().Context(), id, structure)
	if err != nil {
		if errors.Is(err, ErrImmutable) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"diagnostics": diags})
}

func (h *Handler) ValidateVersion(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	diags, err := h.svc.Validate(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"diagnostics": diags})
}

func (h *Handler) PublishVersion(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.Publish(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrImmutable) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) RetireVersion(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.Retire(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotPublished) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ValidSources(c echo.Context) error {
	versionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	questionID, err := uuid.Parse(c.QueryParam("question_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid question_id")
	}
	sources, err := h.svc.ValidSources(c.Request().Context(), versionID, questionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "form version not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"sources": sources})
}

// -- Resolve --

type cellInput struct {
	RowID uuid.UUID `json:"rowId"`
	ColID uuid.UUID `json:"colId"`
	Value string    `json:"value"`
}

type answerInput struct {
	QuestionID  uuid.UUID   `json:"questionId"`
	RepeatIndex int         `json:"repeatIndex"`
	Value       *string     `json:"value,omitempty"`
	Values      []string    `json:"values,omitempty"`
	Cells       []cellInput `json:"cells,omitempty"`
}

type resolveRequest struct {
	Answers []answerInput `json:"answers"`
}

// snapshot folds the wire answers into an engine snapshot. Cell inputs
// for the same question and repetition merge into one grid value.
func (req resolveRequest) snapshot() *logic.Snapshot {
	snap := logic.NewSnapshot()
	for _, a := range req.Answers {
		switch {
		case len(a.Cells) > 0:
			cells := map[logic.CellRef]string{}
			if existing, ok := snap.Get(a.QuestionID, a.RepeatIndex); ok && existing.Kind == logic.KindCells {
				for k, v := range existing.Cells {
					cells[k] = v
				}
			}
			for _, cell := range a.Cells {
				cells[logic.CellRef{Row: cell.RowID, Col: cell.ColID}] = cell.Value
			}
			snap.SetRepeat(a.QuestionID, a.RepeatIndex, logic.CellsValue(cells))
		case a.Values != nil:
			snap.SetRepeat(a.QuestionID, a.RepeatIndex, logic.MultiValue(a.Values...))
		case a.Value != nil:
			snap.SetRepeat(a.QuestionID, a.RepeatIndex, logic.TextValue(*a.Value))
		}
	}
	return snap
}

func (h *Handler) ResolveVersion(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.svc.Resolve(c.Request().Context(), id, req.snapshot())
	if err != nil {
		var dup *logic.DuplicateQuestionError
		if errors.As(err, &dup) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return echo.NewHTTPError(http.StatusNotFound, "form version not found")
	}
	return c.JSON(http.StatusOK, res)
}
