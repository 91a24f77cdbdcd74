package bulkimport

import (
	"errors"
	"io"
	"strings"

	"github.com/samSKIF/ThrivioHR-sub000/pkg/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type ImportController struct {
	ImportService ImportService
	Hub           *ProgressHub
}

func NewImportController(importService ImportService, hub *ProgressHub) *ImportController {
	return &ImportController{
		ImportService: importService,
		Hub:           hub,
	}
}

type csvRequest struct {
	Csv    string `json:"csv"`
	DryRun bool   `json:"dryRun"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

// Validate godoc
// @Summary Validate a CSV file
// @Description Normalize and validate employee CSV input without touching the directory
// @Tags import
// @Accept json,multipart/form-data
// @Produce json
// @Success 200 {object} ValidationResult
// @Failure 400 {object} map[string]interface{}
// @Router /api/import/validate [post]
func (c *ImportController) Validate(ctx *fiber.Ctx) error {
	csvText, err := c.csvFromRequest(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := c.ImportService.Validate(ctx.UserContext(), csvText)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(result)
}

// Plan godoc
// @Summary Validate a CSV file and list proposed users
// @Tags import
// @Accept json,multipart/form-data
// @Produce json
// @Success 200 {object} PlanResult
// @Failure 400 {object} map[string]interface{}
// @Router /api/import/plan [post]
func (c *ImportController) Plan(ctx *fiber.Ctx) error {
	csvText, err := c.csvFromRequest(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := c.ImportService.Plan(ctx.UserContext(), csvText)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(result)
}

// CommitPlan godoc
// @Summary Compute the create/update/skip plan against the directory
// @Description Read-only classification of each row plus manager-graph diagnostics
// @Tags import
// @Accept json,multipart/form-data
// @Produce json
// @Success 200 {object} CommitPlanResult
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/import/commit-plan [post]
func (c *ImportController) CommitPlan(ctx *fiber.Ctx) error {
	claims, err := callerClaims(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	csvText, err := c.csvFromRequest(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var req csvRequest
	_ = ctx.BodyParser(&req)

	plan, err := c.ImportService.CommitPlan(ctx.UserContext(), csvText, claims.OrgID, req.DryRun)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(plan)
}

// CreateSession godoc
// @Summary Create a signed import session from a CSV file
// @Description Runs the plan as a dry run and signs it into an expiring token
// @Tags import
// @Accept json,multipart/form-data
// @Produce json
// @Success 201 {object} CreateSessionResult
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/import/sessions [post]
func (c *ImportController) CreateSession(ctx *fiber.Ctx) error {
	claims, err := callerClaims(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	csvText, err := c.csvFromRequest(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	session, err := c.ImportService.CreateImportSession(ctx.UserContext(), csvText, claims.OrgID, claims.UserID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(session)
}

// PreviewSession godoc
// @Summary Decode a session token and return its plan
// @Tags import
// @Accept json
// @Produce json
// @Success 200 {object} CommitPlanResult
// @Failure 400 {object} map[string]interface{}
// @Failure 410 {object} map[string]interface{}
// @Router /api/import/sessions/preview [post]
func (c *ImportController) PreviewSession(ctx *fiber.Ctx) error {
	var req tokenRequest
	if err := ctx.BodyParser(&req); err != nil || req.Token == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "token is required"})
	}

	plan, err := c.ImportService.PreviewImportSession(ctx.UserContext(), req.Token)
	if err != nil {
		return sessionError(ctx, err)
	}
	return ctx.JSON(plan)
}

// ApplySession godoc
// @Summary Apply a previously created import session
// @Description Verifies the token and performs the writes with per-row fault isolation
// @Tags import
// @Accept json
// @Produce json
// @Success 200 {object} ApplyReport
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 410 {object} map[string]interface{}
// @Router /api/import/sessions/apply [post]
func (c *ImportController) ApplySession(ctx *fiber.Ctx) error {
	claims, err := callerClaims(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	var req tokenRequest
	if err := ctx.BodyParser(&req); err != nil || req.Token == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "token is required"})
	}

	report, err := c.ImportService.ApplyImportSession(ctx.UserContext(), req.Token, claims.OrgID)
	if err != nil {
		return sessionError(ctx, err)
	}
	return ctx.JSON(report)
}

// ListAudits godoc
// @Summary List recent applied imports for the caller's organization
// @Tags import
// @Produce json
// @Success 200 {array} models.ImportAudit
// @Failure 401 {object} map[string]interface{}
// @Router /api/import/audits [get]
func (c *ImportController) ListAudits(ctx *fiber.Ctx) error {
	claims, err := callerClaims(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	audits, err := c.ImportService.ListAudits(ctx.UserContext(), claims.OrgID, int64(ctx.QueryInt("limit", 50)))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(audits)
}

// GetAudit godoc
// @Summary Fetch one applied import by id
// @Tags import
// @Produce json
// @Success 200 {object} models.ImportAudit
// @Failure 404 {object} map[string]interface{}
// @Router /api/import/audits/{id} [get]
func (c *ImportController) GetAudit(ctx *fiber.Ctx) error {
	audit, err := c.ImportService.GetAudit(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "import audit not found"})
	}
	return ctx.JSON(audit)
}

// HandleProgress streams apply progress frames for one run id (the csv
// sha256 of the session). The socket is read only to detect disconnect.
func (c *ImportController) HandleProgress(conn *websocket.Conn) {
	runID := conn.Params("runId")
	c.Hub.Subscribe(runID, conn)
	defer c.Hub.Unsubscribe(runID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// csvFromRequest accepts either an uploaded file (csv or xlsx) or a JSON
// body with a "csv" field.
func (c *ImportController) csvFromRequest(ctx *fiber.Ctx) (string, error) {
	if fileHeader, err := ctx.FormFile("file"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			return "", errors.New("failed to open uploaded file")
		}
		defer file.Close()

		name := strings.ToLower(fileHeader.Filename)
		if strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".xls") {
			return ExcelToCSV(file)
		}

		raw, err := io.ReadAll(file)
		if err != nil {
			return "", errors.New("failed to read uploaded file")
		}
		return string(raw), nil
	}

	var req csvRequest
	if err := ctx.BodyParser(&req); err != nil {
		return "", errors.New("csv body is required")
	}
	return req.Csv, nil
}

func callerClaims(ctx *fiber.Ctx) (*utils.UserClaims, error) {
	claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok || claims == nil {
		return nil, errors.New("missing authentication context")
	}
	if claims.OrgID == "" {
		return nil, errors.New("caller has no organization")
	}
	return claims, nil
}

// sessionError maps protocol errors to stable HTTP statuses
func sessionError(ctx *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrMalformedToken):
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrMalformedToken.Error()})
	case errors.Is(err, ErrBadSignature):
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": ErrBadSignature.Error()})
	case errors.Is(err, ErrExpiredToken):
		return ctx.Status(fiber.StatusGone).JSON(fiber.Map{"error": ErrExpiredToken.Error()})
	case errors.Is(err, ErrOrgMismatch):
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": ErrOrgMismatch.Error()})
	default:
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
